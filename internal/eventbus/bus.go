// Detection broadcast transports behind a common publish interface
package eventbus

import (
	"context"
	"log/slog"
)

// Bus broadcasts detections to one downstream transport.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Log mirrors every detection to the structured log.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log bus writing through the given logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Publish logs the detection. Never fails.
func (l *Log) Publish(_ context.Context, topic string, payload any) error {
	l.logger.Info("security event published", "topic", topic, "event", payload)
	return nil
}

// Multi fans each detection out to several buses.
type Multi struct {
	buses []Bus
}

// NewMulti creates a Multi over the given buses. A failing bus stops the
// fan-out, so place best-effort transports first.
func NewMulti(buses ...Bus) *Multi {
	return &Multi{buses: buses}
}

// Publish sends the detection to all buses.
func (m *Multi) Publish(ctx context.Context, topic string, payload any) error {
	for _, b := range m.buses {
		if err := b.Publish(ctx, topic, payload); err != nil {
			return err
		}
	}
	return nil
}
