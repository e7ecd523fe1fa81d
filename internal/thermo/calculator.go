// Thermodynamic state aggregation for robot swarms
package thermo

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"swarmwatch/internal/telemetry"
)

// entropyEpsilon guards the log against zero probabilities.
const entropyEpsilon = 1e-10

// Calculator derives one SwarmThermodynamics aggregate per tick from the
// latest reading of every reporting robot.
type Calculator struct{}

// NewCalculator creates a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute aggregates rows into a thermodynamic state. The second return is
// false when fewer than two robots reported; that tick has no result.
// Anomaly scores are left at zero, scoring against history happens later.
func (c *Calculator) Compute(swarmID string, ts time.Time, rows []telemetry.RobotTelemetry) (telemetry.SwarmThermodynamics, bool) {
	if len(rows) < 2 {
		return telemetry.SwarmThermodynamics{}, false
	}

	energies := make([]float64, len(rows))
	commRates := make([]float64, len(rows))
	neighborCounts := make([]float64, len(rows))
	var total float64
	for i, row := range rows {
		energies[i] = row.EnergyConsumption
		commRates[i] = row.CommunicationRate
		neighborCounts[i] = float64(row.NeighborCount())
		total += row.EnergyConsumption
	}

	centroid := centroidOf(rows)
	dists := make([]float64, len(rows))
	for i, row := range rows {
		dists[i] = row.Position.DistanceTo(centroid)
	}

	return telemetry.SwarmThermodynamics{
		SwarmID:                  swarmID,
		Timestamp:                ts,
		RobotCount:               len(rows),
		TotalEnergyConsumption:   total,
		AverageEnergyPerRobot:    total / float64(len(rows)),
		EnergyVariance:           stat.PopVariance(energies, nil),
		CoordinationEntropy:      stateEntropy(rows),
		CommunicationTemperature: stat.Mean(commRates, nil),
		AverageNeighborCount:     stat.Mean(neighborCounts, nil),
		SwarmCohesion:            stat.Mean(dists, nil),
		SwarmDispersion:          stat.PopStdDev(dists, nil),
	}, true
}

// stateEntropy is the Shannon entropy in bits of the operational state mix.
// All robots in one state yields 0, an even split across k states log2(k).
func stateEntropy(rows []telemetry.RobotTelemetry) float64 {
	counts := make(map[telemetry.OperationalState]int)
	for _, row := range rows {
		counts[row.OperationalState]++
	}
	n := float64(len(rows))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p+entropyEpsilon)
	}
	// The epsilon makes a single-state mix land a hair below zero.
	if h < 0 {
		h = 0
	}
	return h
}

func centroidOf(rows []telemetry.RobotTelemetry) telemetry.Vector3 {
	var c telemetry.Vector3
	for _, row := range rows {
		c.X += row.Position.X
		c.Y += row.Position.Y
		c.Z += row.Position.Z
	}
	n := float64(len(rows))
	return telemetry.Vector3{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}
