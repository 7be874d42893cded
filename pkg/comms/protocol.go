// Package comms defines the wire protocol for signal distribution and the
// NATS publisher that carries it. Messages are JSON with a message_type
// discriminator so consumers can dispatch without sniffing fields.
package comms

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MessageType discriminates the payload shape
type MessageType string

const (
	MessageTradeSignal       MessageType = "TRADE_SIGNAL"
	MessagePositionUpdate    MessageType = "POSITION_UPDATE"
	MessagePerformanceUpdate MessageType = "PERFORMANCE_UPDATE"
	MessageSystemStatus      MessageType = "SYSTEM_STATUS"
	MessageError             MessageType = "ERROR_MESSAGE"
	MessageHeartbeat         MessageType = "HEARTBEAT"
)

// Envelope carries the fields common to every message
type Envelope struct {
	MessageID   string      `json:"message_id"`
	MessageType MessageType `json:"message_type"`
	Timestamp   time.Time   `json:"timestamp"`
}

// newEnvelope stamps a fresh id and UTC timestamp
func newEnvelope(mt MessageType) Envelope {
	return Envelope{
		MessageID:   uuid.NewString(),
		MessageType: mt,
		Timestamp:   time.Now().UTC(),
	}
}

// TradeSignal is an actionable signal for one pair
type TradeSignal struct {
	Envelope
	PairName   string  `json:"pair_name"`
	SymbolA    string  `json:"symbol_a"`
	SymbolB    string  `json:"symbol_b"`
	SignalType string  `json:"signal_type"`
	ZScore     float64 `json:"z_score"`
	HedgeRatio float64 `json:"hedge_ratio"`
	Confidence float64 `json:"confidence"`
	HalfLife   float64 `json:"half_life,omitempty"`

	// Sizing fields, zero when the publisher does not size positions
	PositionSize float64 `json:"position_size,omitempty"`
	SharesA      float64 `json:"shares_a,omitempty"`
	SharesB      float64 `json:"shares_b,omitempty"`

	Volatility  float64           `json:"volatility,omitempty"`
	Correlation float64           `json:"correlation,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewTradeSignal creates a stamped trade signal
func NewTradeSignal(pair, symbolA, symbolB, signalType string) *TradeSignal {
	return &TradeSignal{
		Envelope:   newEnvelope(MessageTradeSignal),
		PairName:   pair,
		SymbolA:    symbolA,
		SymbolB:    symbolB,
		SignalType: signalType,
	}
}

// PositionUpdate reports the current position of one pair
type PositionUpdate struct {
	Envelope
	PairName      string  `json:"pair_name"`
	Position      int     `json:"position"`
	EntryZScore   float64 `json:"entry_z_score,omitempty"`
	CurrentZScore float64 `json:"current_z_score"`
	UnrealizedPnL float64 `json:"unrealized_pnl,omitempty"`
}

// NewPositionUpdate creates a stamped position update
func NewPositionUpdate(pair string, position int, currentZ float64) *PositionUpdate {
	return &PositionUpdate{
		Envelope:      newEnvelope(MessagePositionUpdate),
		PairName:      pair,
		Position:      position,
		CurrentZScore: currentZ,
	}
}

// SystemStatus reports component health transitions
type SystemStatus struct {
	Envelope
	Component string            `json:"component"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewSystemStatus creates a stamped status message
func NewSystemStatus(component, status string) *SystemStatus {
	return &SystemStatus{
		Envelope:  newEnvelope(MessageSystemStatus),
		Component: component,
		Status:    status,
	}
}

// ErrorMessage reports a component error to consumers
type ErrorMessage struct {
	Envelope
	Component string `json:"component"`
	Severity  string `json:"severity"`
	Error     string `json:"error"`
	Context   string `json:"context,omitempty"`
}

// NewErrorMessage creates a stamped error message
func NewErrorMessage(component, severity, errText string) *ErrorMessage {
	return &ErrorMessage{
		Envelope:  newEnvelope(MessageError),
		Component: component,
		Severity:  severity,
		Error:     errText,
	}
}

// Heartbeat is the periodic liveness message
type Heartbeat struct {
	Envelope
	Component string `json:"component"`
	Sequence  uint64 `json:"sequence"`
}

// NewHeartbeat creates a stamped heartbeat
func NewHeartbeat(component string, sequence uint64) *Heartbeat {
	return &Heartbeat{
		Envelope:  newEnvelope(MessageHeartbeat),
		Component: component,
		Sequence:  sequence,
	}
}

// Marshal encodes any protocol message as JSON
func Marshal(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// ParseMessage decodes raw JSON into the concrete message type named by its
// message_type field.
func ParseMessage(data []byte) (interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	var msg interface{}
	switch env.MessageType {
	case MessageTradeSignal:
		msg = &TradeSignal{}
	case MessagePositionUpdate:
		msg = &PositionUpdate{}
	case MessageSystemStatus:
		msg = &SystemStatus{}
	case MessageError:
		msg = &ErrorMessage{}
	case MessageHeartbeat:
		msg = &Heartbeat{}
	default:
		return nil, fmt.Errorf("unknown message_type %q", env.MessageType)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.MessageType, err)
	}
	return msg, nil
}
