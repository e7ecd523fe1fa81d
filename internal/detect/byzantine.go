package detect

import (
	"swarmwatch/internal/telemetry"
)

// ByzantineDetector is an extension point for detecting robots that report
// inconsistent or contradictory telemetry. Real detection needs cross-device
// consensus checking that no current data source provides, so deployments
// plug in their own implementation.
type ByzantineDetector interface {
	Detect(swarmID string, rows []telemetry.RobotTelemetry) (Threat, bool)
}

// NoopByzantineDetector is the shipped placeholder. It never fires.
type NoopByzantineDetector struct{}

// Detect reports nothing.
func (NoopByzantineDetector) Detect(string, []telemetry.RobotTelemetry) (Threat, bool) {
	return Threat{}, false
}
