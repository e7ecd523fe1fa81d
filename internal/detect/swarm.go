package detect

import (
	"gonum.org/v1/gonum/stat"

	"swarmwatch/internal/telemetry"
)

// SwarmThresholds tune the swarm-side detectors.
type SwarmThresholds struct {
	EntropyScore  float64
	EnergyScore   float64
	TopologyScore float64
	SybilWindow   int
	SybilIncrease float64
}

// DefaultSwarmThresholds returns the production tuning.
func DefaultSwarmThresholds() SwarmThresholds {
	return SwarmThresholds{
		EntropyScore:  3.0,
		EnergyScore:   4.0,
		TopologyScore: 3.0,
		SybilWindow:   9,
		SybilIncrease: 0.30,
	}
}

// HijackDetector flags a swarm whose entropy, energy, or topology has moved
// far from its own baseline. Any one indicator is enough.
type HijackDetector struct {
	thresholds SwarmThresholds
}

// NewHijackDetector creates a detector with the given thresholds.
func NewHijackDetector(t SwarmThresholds) *HijackDetector {
	return &HijackDetector{thresholds: t}
}

// Detect inspects one aggregate. The state must already carry its three
// anomaly scores.
func (d *HijackDetector) Detect(state telemetry.SwarmThermodynamics) (Threat, bool) {
	var indicators []string
	if state.EntropyAnomalyScore > d.thresholds.EntropyScore {
		indicators = append(indicators, "entropy_anomaly")
	}
	if state.EnergyAnomalyScore > d.thresholds.EnergyScore {
		indicators = append(indicators, "energy_anomaly")
	}
	if state.TopologyAnomalyScore > d.thresholds.TopologyScore {
		indicators = append(indicators, "topology_anomaly")
	}
	if len(indicators) == 0 {
		return Threat{}, false
	}

	t := NewThreat(ThreatSwarmHijacking, state.SwarmID, SeverityCritical, CategorySwarm, SourceSwarmMonitor)
	snapshot := state
	t.Thermo = &snapshot
	t.Details = map[string]any{
		"indicators":             indicators,
		"entropy_anomaly_score":  state.EntropyAnomalyScore,
		"energy_anomaly_score":   state.EnergyAnomalyScore,
		"topology_anomaly_score": state.TopologyAnomalyScore,
		"robot_count":            state.RobotCount,
	}
	return t, true
}

// SybilDetector flags a sudden inflation of reporting identities.
type SybilDetector struct {
	thresholds SwarmThresholds
}

// NewSybilDetector creates a detector with the given thresholds.
func NewSybilDetector(t SwarmThresholds) *SybilDetector {
	return &SybilDetector{thresholds: t}
}

// Detect compares the current robot count against the mean of the preceding
// window. priorCounts holds earlier robot counts oldest first and must not
// include the current tick. With fewer than a full window of priors there is
// no baseline to compare against and nothing fires.
func (d *SybilDetector) Detect(swarmID string, currentCount int, currentEntropy float64, priorCounts []float64) (Threat, bool) {
	window := d.thresholds.SybilWindow
	if window <= 0 {
		window = 9
	}
	if len(priorCounts) < window {
		return Threat{}, false
	}
	recent := priorCounts[len(priorCounts)-window:]
	avg := stat.Mean(recent, nil)
	if avg <= 0 {
		return Threat{}, false
	}
	increase := float64(currentCount) - avg
	if increase <= d.thresholds.SybilIncrease*avg {
		return Threat{}, false
	}

	t := NewThreat(ThreatSybilAttack, swarmID, SeverityHigh, CategorySwarm, SourceSwarmMonitor)
	t.Details = map[string]any{
		"previous_avg_count":   avg,
		"current_count":        currentCount,
		"increase":             increase,
		"coordination_entropy": currentEntropy,
	}
	return t, true
}
