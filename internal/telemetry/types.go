// Telemetry value records for swarm robots and IoT sensors
package telemetry

import (
	"math"
	"time"
)

// OperationalState classifies what a robot reported doing at sampling time.
type OperationalState string

// Robot operational states.
const (
	StateIdle     OperationalState = "idle"
	StateMoving   OperationalState = "moving"
	StateWorking  OperationalState = "working"
	StateCharging OperationalState = "charging"
	StateError    OperationalState = "error"
)

// IsValid reports whether s is one of the known operational states.
func (s OperationalState) IsValid() bool {
	switch s {
	case StateIdle, StateMoving, StateWorking, StateCharging, StateError:
		return true
	}
	return false
}

// SensorType identifies the physical quantity an IoT sensor measures.
type SensorType string

// Known sensor types.
const (
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorPressure    SensorType = "pressure"
	SensorCO2         SensorType = "co2"
	SensorVibration   SensorType = "vibration"
)

// IsValid reports whether t is one of the known sensor types.
func (t SensorType) IsValid() bool {
	switch t {
	case SensorTemperature, SensorHumidity, SensorPressure, SensorCO2, SensorVibration:
		return true
	}
	return false
}

// Vector3 is a position or velocity in a local Cartesian frame, meters or m/s.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance between two points.
func (v Vector3) DistanceTo(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// LatLon is a geographic sensor location.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RobotTelemetry is one robot reading at one instant. Records are immutable
// once created; the monitor only appends them to bounded per-robot history.
type RobotTelemetry struct {
	RobotID           string           `json:"robot_id"`
	Timestamp         time.Time        `json:"ts"`
	Position          Vector3          `json:"position"`
	Velocity          Vector3          `json:"velocity"`
	OperationalState  OperationalState `json:"operational_state"`
	BatteryLevel      float64          `json:"battery_level"`
	EnergyConsumption float64          `json:"energy_consumption"`
	CommunicationRate float64          `json:"communication_rate"`
	NeighborIDs       []string         `json:"neighbor_ids"`
}

// NeighborCount returns the size of the robot's communication neighborhood.
func (r RobotTelemetry) NeighborCount() int {
	return len(r.NeighborIDs)
}

// IoTSensorData is one sensor reading at one instant. Same immutability and
// eviction rules as RobotTelemetry, keyed per sensor.
type IoTSensorData struct {
	SensorID     string     `json:"sensor_id"`
	Timestamp    time.Time  `json:"ts"`
	SensorType   SensorType `json:"sensor_type"`
	Value        float64    `json:"value"`
	Unit         string     `json:"unit"`
	Location     LatLon     `json:"location"`
	BatteryLevel *float64   `json:"battery_level,omitempty"`
}

// SwarmThermodynamics is the per-tick aggregate of one swarm, derived from
// the latest reading of every reporting robot. Never mutated after creation.
type SwarmThermodynamics struct {
	SwarmID                  string    `json:"swarm_id"`
	Timestamp                time.Time `json:"ts"`
	RobotCount               int       `json:"robot_count"`
	TotalEnergyConsumption   float64   `json:"total_energy_consumption"`
	AverageEnergyPerRobot    float64   `json:"average_energy_per_robot"`
	EnergyVariance           float64   `json:"energy_variance"`
	CoordinationEntropy      float64   `json:"coordination_entropy"`
	CommunicationTemperature float64   `json:"communication_temperature"`
	AverageNeighborCount     float64   `json:"average_neighbor_count"`
	SwarmCohesion            float64   `json:"swarm_cohesion"`
	SwarmDispersion          float64   `json:"swarm_dispersion"`
	EntropyAnomalyScore      float64   `json:"entropy_anomaly_score"`
	EnergyAnomalyScore       float64   `json:"energy_anomaly_score"`
	TopologyAnomalyScore     float64   `json:"topology_anomaly_score"`
}
