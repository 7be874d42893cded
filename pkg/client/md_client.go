// Package client receives market data over NATS for the signal engine.
package client

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarketData is one tick for a single symbol
type MarketData struct {
	Symbol    string  `json:"symbol"`
	Exchange  string  `json:"exchange,omitempty"`
	Timestamp uint64  `json:"timestamp"`
	LastPrice float64 `json:"last_price"`
	LastQty   uint32  `json:"last_qty,omitempty"`
	BidPrice  float64 `json:"bid_price,omitempty"`
	AskPrice  float64 `json:"ask_price,omitempty"`
}

// MDHandler consumes decoded ticks
type MDHandler func(md *MarketData)

// MDClient subscribes to per-symbol market data subjects on NATS
type MDClient struct {
	nc      *nats.Conn
	subject string // pattern with one %s for the symbol, e.g. md.%s
	subs    []*nats.Subscription
}

// NewMDClient connects to NATS
func NewMDClient(natsURL, subjectPattern string) (*MDClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[MDClient] NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[MDClient] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &MDClient{nc: nc, subject: subjectPattern}, nil
}

// Subscribe registers a handler for each symbol's subject. Malformed ticks
// are logged and dropped.
func (c *MDClient) Subscribe(symbols []string, handler MDHandler) error {
	for _, symbol := range symbols {
		subject := fmt.Sprintf(c.subject, symbol)
		sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
			var md MarketData
			if err := json.Unmarshal(msg.Data, &md); err != nil {
				log.Printf("[MDClient] Bad tick on %s: %v", msg.Subject, err)
				return
			}
			handler(&md)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
		log.Printf("[MDClient] Subscribed to %s", subject)
	}
	return nil
}

// IsConnected reports connection health
func (c *MDClient) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// Close drops all subscriptions and the connection
func (c *MDClient) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if c.nc != nil {
		c.nc.Close()
	}
}
