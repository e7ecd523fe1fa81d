package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"swarmwatch/internal/config"
)

// natsConn is the slice of *nats.Conn used here, kept narrow so tests can
// capture published subjects.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATS publishes detections as JSON messages on per-topic subjects.
type NATS struct {
	conn   natsConn
	prefix string
}

// NewNATS connects to the configured NATS server. The connection retries
// in the background, so a server that is briefly down does not fail startup.
func NewNATS(cfg config.NATSConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

// Publish sends the detection on "<prefix>.<topic>".
func (n *NATS) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := topic
	if n.prefix != "" {
		subject = n.prefix + "." + topic
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection, flushing buffered publishes.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
