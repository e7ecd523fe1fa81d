package detect

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"swarmwatch/internal/telemetry"
)

// IoTThresholds tune the sensor-side detectors.
type IoTThresholds struct {
	BotnetCorrelation float64
	BotnetMaxSensors  int
	BotnetWindow      int
	BotnetMinSensors  int
	BotnetMinSeries   int
}

// DefaultIoTThresholds returns the production tuning.
func DefaultIoTThresholds() IoTThresholds {
	return IoTThresholds{
		BotnetCorrelation: 0.85,
		BotnetMaxSensors:  10,
		BotnetWindow:      20,
		BotnetMinSensors:  5,
		BotnetMinSeries:   5,
	}
}

// SensorSeries is one sensor's recent values, oldest first.
type SensorSeries struct {
	SensorID string
	Values   []float64
}

// BotnetDetector flags centrally commanded sensors by how strongly their
// recent value series move together.
type BotnetDetector struct {
	thresholds IoTThresholds
}

// NewBotnetDetector creates a detector with the given thresholds.
func NewBotnetDetector(t IoTThresholds) *BotnetDetector {
	return &BotnetDetector{thresholds: t}
}

// Detect computes the pairwise Pearson correlation matrix over up to
// BotnetMaxSensors series and fires when the mean absolute correlation of
// the upper triangle exceeds the threshold. Sensors with fewer than
// BotnetMinSeries stored values sit out; with fewer than BotnetMinSensors
// participants the analysis does not run. deviceCount is the network's full
// sensor inventory, reported alongside the analyzed subset.
func (d *BotnetDetector) Detect(networkID string, series []SensorSeries, deviceCount int) (Threat, bool) {
	th := d.thresholds
	if th.BotnetMaxSensors <= 0 {
		th.BotnetMaxSensors = 10
	}
	if th.BotnetMinSensors <= 0 {
		th.BotnetMinSensors = 5
	}
	if th.BotnetMinSeries <= 0 {
		th.BotnetMinSeries = 5
	}

	eligible := make([]SensorSeries, 0, th.BotnetMaxSensors)
	for _, s := range series {
		if len(s.Values) < th.BotnetMinSeries {
			continue
		}
		eligible = append(eligible, s)
		if len(eligible) == th.BotnetMaxSensors {
			break
		}
	}
	if len(eligible) < th.BotnetMinSensors {
		return Threat{}, false
	}

	var sum float64
	var pairs int
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := tailAlign(eligible[i].Values, eligible[j].Values, th.BotnetWindow)
			r := stat.Correlation(a, b, nil)
			// Constant series have no defined correlation.
			if math.IsNaN(r) {
				continue
			}
			sum += math.Abs(r)
			pairs++
		}
	}
	if pairs == 0 {
		return Threat{}, false
	}
	meanCorr := sum / float64(pairs)
	if meanCorr <= th.BotnetCorrelation {
		return Threat{}, false
	}

	t := NewThreat(ThreatIoTBotnet, networkID, SeverityCritical, CategoryIoT, SourceIoTMonitor)
	t.Details = map[string]any{
		"mean_correlation":      meanCorr,
		"device_count":          deviceCount,
		"analyzed_device_count": len(eligible),
	}
	return t, true
}

// tailAlign trims both series to their common trailing window.
func tailAlign(a, b []float64, window int) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if window > 0 && n > window {
		n = window
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// plausibleRanges bound each sensor type to physically possible readings.
var plausibleRanges = map[telemetry.SensorType][2]float64{
	telemetry.SensorTemperature: {-50, 70},
	telemetry.SensorHumidity:    {0, 100},
	telemetry.SensorPressure:    {300, 1100},
	telemetry.SensorCO2:         {0, 10000},
	telemetry.SensorVibration:   {0, 1000},
}

// PoisoningDetector flags physically impossible sensor readings.
type PoisoningDetector struct{}

// NewPoisoningDetector creates a detector.
func NewPoisoningDetector() *PoisoningDetector {
	return &PoisoningDetector{}
}

// Detect judges one reading against its type's plausible range. Sensor
// types without a known range are not judged.
func (d *PoisoningDetector) Detect(networkID string, reading telemetry.IoTSensorData) (Threat, bool) {
	bounds, ok := plausibleRanges[reading.SensorType]
	if !ok {
		return Threat{}, false
	}
	if reading.Value >= bounds[0] && reading.Value <= bounds[1] {
		return Threat{}, false
	}

	t := NewThreat(ThreatDataPoisoning, reading.SensorID, SeverityMedium, CategoryIoT, SourceIoTMonitor)
	t.Details = map[string]any{
		"network_id":       networkID,
		"sensor_type":      reading.SensorType,
		"impossible_value": reading.Value,
		"unit":             reading.Unit,
	}
	return t, true
}
