package telemetry

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"
)

func TestCollectRobotTelemetry(t *testing.T) {
	c := NewSimCollector(1)
	ids := c.AddSwarm(SwarmSpec{SwarmID: "swarm-1", Model: "scout", Robots: 5})
	if len(ids) != 5 {
		t.Fatalf("expected 5 robot ids, got %d", len(ids))
	}

	rows, err := c.CollectRobotTelemetry(context.Background(), "swarm-1")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if !strings.HasPrefix(row.RobotID, "swarm-1-") {
			t.Errorf("expected swarm-prefixed id, got %s", row.RobotID)
		}
		if time.Since(row.Timestamp) > 1*time.Second {
			t.Errorf("timestamp too old: %v", row.Timestamp)
		}
		if !row.OperationalState.IsValid() {
			t.Errorf("invalid operational state %q", row.OperationalState)
		}
		if row.BatteryLevel < 0 || row.BatteryLevel > 100 {
			t.Errorf("battery out of range: %f", row.BatteryLevel)
		}
		if row.EnergyConsumption <= 0 {
			t.Errorf("expected positive energy, got %f", row.EnergyConsumption)
		}
		if row.CommunicationRate < 8 || row.CommunicationRate > 12 {
			t.Errorf("communication rate out of range: %f", row.CommunicationRate)
		}
	}
}

func TestCollectUnknownSwarm(t *testing.T) {
	c := NewSimCollector(1)
	if _, err := c.CollectRobotTelemetry(context.Background(), "nope"); err == nil {
		t.Errorf("expected error for unknown swarm")
	}
	if _, err := c.CollectSensorData(context.Background(), "nope"); err == nil {
		t.Errorf("expected error for unknown network")
	}
}

func TestCollectCanceledContext(t *testing.T) {
	c := NewSimCollector(1)
	c.AddSwarm(SwarmSpec{SwarmID: "swarm-1", Robots: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.CollectRobotTelemetry(ctx, "swarm-1"); err == nil {
		t.Errorf("expected error after cancel")
	}
}

func TestHijackScenario(t *testing.T) {
	c := NewSimCollector(7)
	c.AddSwarm(SwarmSpec{SwarmID: "swarm-1", Robots: 6, Attack: AttackHijack, AttackAfter: 2})

	// Two nominal ticks, then the hijack engages.
	for i := 0; i < 2; i++ {
		if _, err := c.CollectRobotTelemetry(context.Background(), "swarm-1"); err != nil {
			t.Fatalf("collect failed: %v", err)
		}
	}
	rows, err := c.CollectRobotTelemetry(context.Background(), "swarm-1")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	for _, row := range rows {
		if row.OperationalState != StateMoving {
			t.Errorf("expected uniform moving state, got %s", row.OperationalState)
		}
		if row.EnergyConsumption < 400 {
			t.Errorf("expected energy burst, got %f", row.EnergyConsumption)
		}
	}
}

func TestSybilScenario(t *testing.T) {
	c := NewSimCollector(7)
	c.AddSwarm(SwarmSpec{SwarmID: "swarm-1", Robots: 10, Attack: AttackSybil, AttackAfter: 1})

	rows, err := c.CollectRobotTelemetry(context.Background(), "swarm-1")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows before attack, got %d", len(rows))
	}

	rows, err = c.CollectRobotTelemetry(context.Background(), "swarm-1")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(rows) != 14 {
		t.Fatalf("expected 14 rows with phantoms, got %d", len(rows))
	}
	phantoms := 0
	for _, row := range rows {
		if strings.Contains(row.RobotID, "-phantom-") {
			phantoms++
		}
	}
	if phantoms != 4 {
		t.Errorf("expected 4 phantom identities, got %d", phantoms)
	}
}

func TestBotnetScenario(t *testing.T) {
	c := NewSimCollector(7)
	c.AddNetwork(NetworkSpec{
		NetworkID:   "net-1",
		Sensors:     []SensorSpec{{Type: SensorTemperature, Count: 5}},
		Attack:      AttackBotnet,
		AttackAfter: 0,
	})

	series := make([][]float64, 5)
	for tick := 0; tick < 30; tick++ {
		rows, err := c.CollectSensorData(context.Background(), "net-1")
		if err != nil {
			t.Fatalf("collect failed: %v", err)
		}
		for i, row := range rows {
			series[i] = append(series[i], row.Value)
		}
	}
	if r := pearson(series[0], series[1]); r < 0.95 {
		t.Errorf("expected synchronized sensors, correlation %f", r)
	}
	if r := pearson(series[2], series[4]); r < 0.95 {
		t.Errorf("expected synchronized sensors, correlation %f", r)
	}
}

func TestPoisoningScenario(t *testing.T) {
	c := NewSimCollector(7)
	c.AddNetwork(NetworkSpec{
		NetworkID:   "net-1",
		Sensors:     []SensorSpec{{Type: SensorTemperature, Count: 3}},
		Attack:      AttackPoisoning,
		AttackAfter: 0,
	})

	rows, err := c.CollectSensorData(context.Background(), "net-1")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if rows[0].Value != 150 {
		t.Errorf("expected poisoned reading 150, got %f", rows[0].Value)
	}
	for _, row := range rows[1:] {
		if row.Value > 70 {
			t.Errorf("expected plausible reading, got %f", row.Value)
		}
	}
}

func TestCollectSensorData(t *testing.T) {
	c := NewSimCollector(3)
	ids := c.AddNetwork(NetworkSpec{
		NetworkID: "net-1",
		Sensors: []SensorSpec{
			{Type: SensorTemperature, Count: 2},
			{Type: SensorCO2, Count: 1},
		},
	})
	if len(ids) != 3 {
		t.Fatalf("expected 3 sensor ids, got %d", len(ids))
	}

	rows, err := c.CollectSensorData(context.Background(), "net-1")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.SensorID != ids[i] {
			t.Errorf("expected id %s, got %s", ids[i], row.SensorID)
		}
		if !row.SensorType.IsValid() {
			t.Errorf("invalid sensor type %q", row.SensorType)
		}
		if row.Unit == "" {
			t.Errorf("expected unit for %s", row.SensorID)
		}
		if row.BatteryLevel == nil {
			t.Errorf("expected battery level for %s", row.SensorID)
		}
	}
}

func TestFillNeighborsSymmetry(t *testing.T) {
	rows := []RobotTelemetry{
		{RobotID: "a", Position: Vector3{X: 0}},
		{RobotID: "b", Position: Vector3{X: 10}},
		{RobotID: "c", Position: Vector3{X: 100}},
	}
	fillNeighbors(rows, 25)
	if rows[0].NeighborCount() != 1 || rows[0].NeighborIDs[0] != "b" {
		t.Errorf("expected a to neighbor b, got %v", rows[0].NeighborIDs)
	}
	if rows[1].NeighborCount() != 1 || rows[1].NeighborIDs[0] != "a" {
		t.Errorf("expected b to neighbor a, got %v", rows[1].NeighborIDs)
	}
	if rows[2].NeighborCount() != 0 {
		t.Errorf("expected c isolated, got %v", rows[2].NeighborIDs)
	}
}

func TestModelDrain(t *testing.T) {
	cases := map[string]float64{
		"scout":     0.5,
		"hauler":    0.3,
		"assembler": 0.2,
		"other":     0.4,
	}
	for model, want := range cases {
		if got := modelDrain(model); got != want {
			t.Errorf("modelDrain(%s)=%f, want %f", model, got, want)
		}
	}
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/n, sumB/n
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	return cov / math.Sqrt(varA*varB)
}
