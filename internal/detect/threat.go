// Package detect holds the threat model and the detectors that fire on
// swarm aggregates and IoT sensor readings.
package detect

import (
	"time"

	"github.com/google/uuid"

	"swarmwatch/internal/telemetry"
)

// Severity grades how urgent a detection is.
type Severity string

// Severity levels for detections.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityToInt converts severity to a numeric value for ordering.
func SeverityToInt(s Severity) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ThreatType names a detector.
type ThreatType string

// Detector identities.
const (
	ThreatSwarmHijacking ThreatType = "swarm_hijacking"
	ThreatSybilAttack    ThreatType = "sybil_attack"
	ThreatIoTBotnet      ThreatType = "iot_botnet"
	ThreatDataPoisoning  ThreatType = "data_poisoning"
	ThreatByzantineFault ThreatType = "byzantine_fault"
)

// Category separates robot-swarm detections from IoT-network detections.
type Category string

// Threat categories.
const (
	CategorySwarm Category = "swarm"
	CategoryIoT   Category = "iot"
)

// Source values identify which monitoring loop produced a detection.
const (
	SourceSwarmMonitor = "swarm_monitor"
	SourceIoTMonitor   = "iot_monitor"
)

// Threat is one positive detection, immutable once built. Swarm detections
// carry the thermodynamic snapshot they were judged against.
type Threat struct {
	ID         uuid.UUID                      `json:"id"`
	Type       ThreatType                     `json:"event_type"`
	TargetID   string                         `json:"target_id"`
	Timestamp  time.Time                      `json:"ts"`
	Severity   Severity                       `json:"severity"`
	Category   Category                       `json:"category"`
	Confidence float64                        `json:"confidence"`
	Source     string                         `json:"source"`
	Thermo     *telemetry.SwarmThermodynamics `json:"thermodynamics,omitempty"`
	Details    map[string]any                 `json:"details,omitempty"`
}

// NewThreat builds a detection with a fresh id and timestamp.
func NewThreat(typ ThreatType, targetID string, sev Severity, cat Category, source string) Threat {
	return Threat{
		ID:        uuid.New(),
		Type:      typ,
		TargetID:  targetID,
		Timestamp: time.Now().UTC(),
		Severity:  sev,
		Category:  cat,
		Source:    source,
	}
}
