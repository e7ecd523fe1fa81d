package history

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Default scorer parameters.
const (
	DefaultMinSamples  = 20
	DefaultStdDevFloor = 0.1
)

// Scorer measures how far a value sits from the rolling baseline of its
// series, in floored standard deviations. The baseline stays inactive until
// the series has accumulated more than MinSamples values; before that every
// score is exactly zero so a short history never flags anomalies.
type Scorer struct {
	MinSamples  int
	StdDevFloor float64
}

// NewScorer returns a Scorer with default baseline gating.
func NewScorer() *Scorer {
	return &Scorer{MinSamples: DefaultMinSamples, StdDevFloor: DefaultStdDevFloor}
}

// Score returns |current - mean(series)| / max(stdev(series), floor).
// The series must not include the current value; callers score first and
// append after, so a new sample never biases its own baseline.
func (s *Scorer) Score(current float64, series []float64) float64 {
	minSamples := s.MinSamples
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if len(series) <= minSamples {
		return 0
	}
	floor := s.StdDevFloor
	if floor <= 0 {
		floor = DefaultStdDevFloor
	}
	mean := stat.Mean(series, nil)
	stdev := stat.PopStdDev(series, nil)
	if stdev < floor {
		stdev = floor
	}
	return math.Abs(current-mean) / stdev
}
