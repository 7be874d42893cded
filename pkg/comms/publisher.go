package comms

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// Default NATS subjects for signal distribution
const (
	SubjectTradeSignals   = "signals.trade"
	SubjectPositions      = "signals.position"
	SubjectSystemStatus   = "signals.status"
	SubjectErrors         = "signals.error"
	SubjectHeartbeat      = "signals.heartbeat"
	DefaultHeartbeatEvery = 30 * time.Second
)

// Publisher distributes protocol messages over NATS and keeps a background
// heartbeat running so consumers can detect a dead engine.
type Publisher struct {
	nc        *nats.Conn
	component string

	hbEvery time.Duration
	hbSeq   uint64
	stopCh  chan struct{}
	wg      sync.WaitGroup

	closed atomic.Bool
}

// NewPublisher connects to NATS and starts the heartbeat loop.
// heartbeatEvery <= 0 selects DefaultHeartbeatEvery.
func NewPublisher(natsURL, component string, heartbeatEvery time.Duration) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[Publisher] NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[Publisher] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", natsURL, err)
	}

	if heartbeatEvery <= 0 {
		heartbeatEvery = DefaultHeartbeatEvery
	}

	p := &Publisher{
		nc:        nc,
		component: component,
		hbEvery:   heartbeatEvery,
		stopCh:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.heartbeatLoop()

	log.Printf("[Publisher] Connected to NATS at %s", natsURL)
	return p, nil
}

// heartbeatLoop publishes a heartbeat on a fixed interval until Close
func (p *Publisher) heartbeatLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.hbEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			seq := atomic.AddUint64(&p.hbSeq, 1)
			if err := p.publish(SubjectHeartbeat, NewHeartbeat(p.component, seq)); err != nil {
				log.Printf("[Publisher] Heartbeat publish failed: %v", err)
			}
		case <-p.stopCh:
			return
		}
	}
}

// publish encodes and sends one message
func (p *Publisher) publish(subject string, msg interface{}) error {
	if p.closed.Load() {
		return fmt.Errorf("publisher closed")
	}
	data, err := Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return p.nc.Publish(subject, data)
}

// PublishTradeSignal sends a trade signal
func (p *Publisher) PublishTradeSignal(sig *TradeSignal) error {
	return p.publish(SubjectTradeSignals, sig)
}

// PublishPositionUpdate sends a position update
func (p *Publisher) PublishPositionUpdate(pu *PositionUpdate) error {
	return p.publish(SubjectPositions, pu)
}

// PublishSystemStatus sends a status transition
func (p *Publisher) PublishSystemStatus(status string, details map[string]string) error {
	msg := NewSystemStatus(p.component, status)
	msg.Details = details
	return p.publish(SubjectSystemStatus, msg)
}

// PublishError sends an error report
func (p *Publisher) PublishError(severity, errText, context string) error {
	msg := NewErrorMessage(p.component, severity, errText)
	msg.Context = context
	return p.publish(SubjectErrors, msg)
}

// IsHealthy reports whether the NATS connection is up
func (p *Publisher) IsHealthy() bool {
	return !p.closed.Load() && p.nc.IsConnected()
}

// Close stops the heartbeat, flushes pending messages and drops the
// connection. Safe to call more than once.
func (p *Publisher) Close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.stopCh)
	p.wg.Wait()

	if err := p.nc.Flush(); err != nil {
		log.Printf("[Publisher] Flush on close failed: %v", err)
	}
	p.nc.Close()
	log.Printf("[Publisher] Closed")
}
