package detect

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"swarmwatch/internal/telemetry"
)

func waveSeries(n int, scale, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(float64(i)/3)*scale + offset
	}
	return out
}

func TestBotnetDetectorSynchronizedSensors(t *testing.T) {
	d := NewBotnetDetector(DefaultIoTThresholds())
	// Affine copies of one waveform correlate perfectly.
	series := []SensorSeries{
		{SensorID: "s0", Values: waveSeries(20, 10, 0)},
		{SensorID: "s1", Values: waveSeries(20, 20, 5)},
		{SensorID: "s2", Values: waveSeries(20, 5, -3)},
		{SensorID: "s3", Values: waveSeries(20, 15, 100)},
		{SensorID: "s4", Values: waveSeries(20, -10, 2)},
	}
	threat, ok := d.Detect("net-1", series, 8)
	if !ok {
		t.Fatalf("expected detection for synchronized sensors")
	}
	if threat.Type != ThreatIoTBotnet || threat.Severity != SeverityCritical {
		t.Errorf("unexpected threat %s/%s", threat.Type, threat.Severity)
	}
	if threat.TargetID != "net-1" {
		t.Errorf("expected target net-1, got %s", threat.TargetID)
	}
	if corr := threat.Details["mean_correlation"].(float64); corr < 0.99 {
		t.Errorf("expected near-perfect correlation, got %f", corr)
	}
	if n := threat.Details["analyzed_device_count"].(int); n != 5 {
		t.Errorf("expected 5 analyzed devices, got %d", n)
	}
	if n := threat.Details["device_count"].(int); n != 8 {
		t.Errorf("expected device count 8, got %d", n)
	}
}

func TestBotnetDetectorIndependentSensors(t *testing.T) {
	d := NewBotnetDetector(DefaultIoTThresholds())
	rng := rand.New(rand.NewSource(42))
	series := make([]SensorSeries, 6)
	for i := range series {
		values := make([]float64, 20)
		for j := range values {
			values[j] = rng.Float64() * 100
		}
		series[i] = SensorSeries{SensorID: fmt.Sprintf("s%d", i), Values: values}
	}
	if _, ok := d.Detect("net-1", series, 6); ok {
		t.Errorf("expected no detection for independent sensors")
	}
}

func TestBotnetDetectorTooFewSensors(t *testing.T) {
	d := NewBotnetDetector(DefaultIoTThresholds())
	series := []SensorSeries{
		{SensorID: "s0", Values: waveSeries(20, 10, 0)},
		{SensorID: "s1", Values: waveSeries(20, 10, 0)},
		{SensorID: "s2", Values: waveSeries(20, 10, 0)},
		{SensorID: "s3", Values: waveSeries(20, 10, 0)},
	}
	if _, ok := d.Detect("net-1", series, 4); ok {
		t.Errorf("expected no detection below the sensor minimum")
	}
}

func TestBotnetDetectorShortSeriesSitOut(t *testing.T) {
	d := NewBotnetDetector(DefaultIoTThresholds())
	series := []SensorSeries{
		{SensorID: "s0", Values: waveSeries(20, 10, 0)},
		{SensorID: "s1", Values: waveSeries(20, 20, 5)},
		{SensorID: "s2", Values: waveSeries(20, 5, -3)},
		{SensorID: "s3", Values: waveSeries(20, 15, 1)},
		{SensorID: "s4", Values: waveSeries(3, 15, 1)}, // too little data
	}
	if _, ok := d.Detect("net-1", series, 5); ok {
		t.Errorf("expected no detection when a participant lacks data")
	}
}

func TestBotnetDetectorSkipsConstantSeries(t *testing.T) {
	d := NewBotnetDetector(DefaultIoTThresholds())
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 7
	}
	// The flat sensor's pairs are undefined and must not poison the mean.
	series := []SensorSeries{
		{SensorID: "s0", Values: waveSeries(20, 10, 0)},
		{SensorID: "s1", Values: waveSeries(20, 20, 5)},
		{SensorID: "s2", Values: waveSeries(20, 5, -3)},
		{SensorID: "s3", Values: waveSeries(20, 15, 1)},
		{SensorID: "s4", Values: flat},
	}
	threat, ok := d.Detect("net-1", series, 5)
	if !ok {
		t.Fatalf("expected detection from the four live sensors")
	}
	if corr := threat.Details["mean_correlation"].(float64); math.IsNaN(corr) {
		t.Errorf("mean correlation is NaN")
	}
}

func TestBotnetDetectorAlignsUnevenSeries(t *testing.T) {
	d := NewBotnetDetector(DefaultIoTThresholds())
	long := waveSeries(35, 10, 0)
	// Sensors that joined late share the tail of the same waveform.
	series := []SensorSeries{
		{SensorID: "s0", Values: long},
		{SensorID: "s1", Values: affine(long[15:], 2, 5)},
		{SensorID: "s2", Values: affine(long[7:], 0.5, -3)},
		{SensorID: "s3", Values: affine(long[15:], 1.5, 1)},
		{SensorID: "s4", Values: affine(long[13:], -0.4, 9)},
	}
	if _, ok := d.Detect("net-1", series, 5); !ok {
		t.Errorf("expected detection across uneven series lengths")
	}
}

func affine(src []float64, scale, offset float64) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = v*scale + offset
	}
	return out
}

func TestPoisoningDetectorTemperature(t *testing.T) {
	d := NewPoisoningDetector()
	reading := telemetry.IoTSensorData{
		SensorID:   "net-1-temperature-0",
		SensorType: telemetry.SensorTemperature,
		Value:      150,
		Unit:       "celsius",
	}
	threat, ok := d.Detect("net-1", reading)
	if !ok {
		t.Fatalf("expected detection for 150 degrees")
	}
	if threat.Type != ThreatDataPoisoning || threat.Severity != SeverityMedium {
		t.Errorf("unexpected threat %s/%s", threat.Type, threat.Severity)
	}
	if threat.TargetID != "net-1-temperature-0" {
		t.Errorf("expected sensor target, got %s", threat.TargetID)
	}
	if v := threat.Details["impossible_value"].(float64); v != 150 {
		t.Errorf("expected impossible value 150, got %f", v)
	}

	reading.Value = 25
	if _, ok := d.Detect("net-1", reading); ok {
		t.Errorf("expected no detection for 25 degrees")
	}
	reading.Value = -60
	if _, ok := d.Detect("net-1", reading); !ok {
		t.Errorf("expected detection for -60 degrees")
	}
	reading.Value = -50
	if _, ok := d.Detect("net-1", reading); ok {
		t.Errorf("expected no detection at the range boundary")
	}
}

func TestPoisoningDetectorPerTypeRanges(t *testing.T) {
	d := NewPoisoningDetector()
	cases := []struct {
		typ    telemetry.SensorType
		value  float64
		poison bool
	}{
		{telemetry.SensorHumidity, 101, true},
		{telemetry.SensorHumidity, 55, false},
		{telemetry.SensorPressure, 200, true},
		{telemetry.SensorPressure, 1013, false},
		{telemetry.SensorCO2, 20000, true},
		{telemetry.SensorCO2, 420, false},
		{telemetry.SensorVibration, -1, true},
		{telemetry.SensorVibration, 2, false},
		{telemetry.SensorType("lidar"), 1e9, false},
	}
	for _, tc := range cases {
		reading := telemetry.IoTSensorData{SensorID: "s", SensorType: tc.typ, Value: tc.value}
		if _, ok := d.Detect("net-1", reading); ok != tc.poison {
			t.Errorf("%s value %f: detection %v, want %v", tc.typ, tc.value, ok, tc.poison)
		}
	}
}
