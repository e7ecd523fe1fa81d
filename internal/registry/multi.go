package registry

import (
	"context"

	"swarmwatch/internal/detect"
)

// Multi fans each detection out to several registries.
type Multi struct {
	registries []Registry
}

// NewMulti creates a Multi over the given registries. Order matters: a
// failing registry stops the fan-out, so place best-effort sinks first.
func NewMulti(registries ...Registry) *Multi {
	return &Multi{registries: registries}
}

// RegisterSecurityEvent sends the detection to all registries.
func (m *Multi) RegisterSecurityEvent(ctx context.Context, t detect.Threat) error {
	for _, r := range m.registries {
		if err := r.RegisterSecurityEvent(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
