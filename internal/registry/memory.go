// Security event sinks backing the publish pipeline
package registry

import (
	"context"
	"sync"

	"swarmwatch/internal/detect"
	"swarmwatch/internal/history"
)

// Registry records confirmed detections.
type Registry interface {
	RegisterSecurityEvent(ctx context.Context, t detect.Threat) error
}

// Memory keeps the most recent detections in a bounded ring so the admin
// API can serve them without a database. Safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	ring *history.Buffer[detect.Threat]
}

// NewMemory creates a Memory registry holding up to capacity events.
func NewMemory(capacity int) *Memory {
	return &Memory{ring: history.NewBuffer[detect.Threat](capacity)}
}

// RegisterSecurityEvent appends the detection, evicting the oldest entry
// once capacity is reached. Never fails.
func (m *Memory) RegisterSecurityEvent(_ context.Context, t detect.Threat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring.Append(t)
	return nil
}

// Recent returns up to n detections, newest first.
func (m *Memory) Recent(n int) []detect.Threat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ring.LastN(n)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Size returns the number of retained events.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Len()
}

// Evicted returns how many events were pushed out by the capacity bound.
func (m *Memory) Evicted() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Evicted()
}
