// Simulated telemetry feeds standing in for live robot and sensor I/O
package telemetry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AttackType names a scripted attack a simulated entity can play back.
type AttackType string

// Scripted attacks.
const (
	AttackNone      AttackType = "none"
	AttackHijack    AttackType = "hijack"
	AttackSybil     AttackType = "sybil"
	AttackBotnet    AttackType = "botnet"
	AttackPoisoning AttackType = "poisoning"
)

// SwarmSpec describes one simulated robot swarm.
type SwarmSpec struct {
	SwarmID     string
	Model       string
	Robots      int
	CommRangeM  float64
	Attack      AttackType
	AttackAfter int // ticks of nominal behavior before the attack engages
}

// SensorSpec describes a batch of same-typed sensors in a network.
type SensorSpec struct {
	Type  SensorType
	Count int
}

// NetworkSpec describes one simulated IoT sensor network.
type NetworkSpec struct {
	NetworkID   string
	Sensors     []SensorSpec
	Attack      AttackType
	AttackAfter int
}

type simRobot struct {
	id      string
	pos     Vector3
	vel     Vector3
	battery float64
	state   OperationalState
}

type simSwarm struct {
	spec   SwarmSpec
	robots []*simRobot
	ticks  int
}

type simSensor struct {
	id      string
	typ     SensorType
	unit    string
	base    float64
	noise   float64
	loc     LatLon
	battery float64
}

type simNetwork struct {
	spec    NetworkSpec
	sensors []*simSensor
	ticks   int
}

// SimCollector synthesizes robot and sensor readings so the monitor can run
// without live device feeds. One scripted attack per entity can be armed to
// start after a configured number of ticks; until then behavior is nominal.
// All randomness flows from the seed handed to NewSimCollector.
type SimCollector struct {
	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	swarms map[string]*simSwarm
	nets   map[string]*simNetwork
}

// NewSimCollector creates a collector with deterministic randomness.
func NewSimCollector(seed int64) *SimCollector {
	return &SimCollector{
		rng:    rand.New(rand.NewSource(seed)),
		now:    time.Now,
		swarms: make(map[string]*simSwarm),
		nets:   make(map[string]*simNetwork),
	}
}

// AddSwarm registers a simulated swarm and returns its robot IDs.
func (c *SimCollector) AddSwarm(spec SwarmSpec) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	sw := &simSwarm{spec: spec}
	ids := make([]string, 0, spec.Robots)
	for i := 0; i < spec.Robots; i++ {
		r := &simRobot{
			id: generateRobotID(spec.SwarmID, i),
			pos: Vector3{
				X: c.rng.Float64()*40 - 20,
				Y: c.rng.Float64()*40 - 20,
				Z: c.rng.Float64() * 5,
			},
			battery: 80 + c.rng.Float64()*20,
			state:   StateIdle,
		}
		sw.robots = append(sw.robots, r)
		ids = append(ids, r.id)
	}
	c.swarms[spec.SwarmID] = sw
	return ids
}

// AddNetwork registers a simulated sensor network and returns its sensor IDs.
func (c *SimCollector) AddNetwork(spec NetworkSpec) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	nw := &simNetwork{spec: spec}
	var ids []string
	for _, batch := range spec.Sensors {
		base, noise, unit := sensorProfile(batch.Type)
		for i := 0; i < batch.Count; i++ {
			s := &simSensor{
				id:    fmt.Sprintf("%s-%s-%d", spec.NetworkID, batch.Type, i),
				typ:   batch.Type,
				unit:  unit,
				base:  base + c.rng.Float64()*noise - noise/2,
				noise: noise,
				loc: LatLon{
					Lat: 48.2082 + c.rng.Float64()*0.02 - 0.01,
					Lon: 16.3738 + c.rng.Float64()*0.02 - 0.01,
				},
				battery: 100,
			}
			nw.sensors = append(nw.sensors, s)
			ids = append(ids, s.id)
		}
	}
	c.nets[spec.NetworkID] = nw
	return ids
}

// CollectRobotTelemetry advances the named swarm one step and returns the
// latest reading for every robot.
func (c *SimCollector) CollectRobotTelemetry(ctx context.Context, swarmID string) ([]RobotTelemetry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sw, ok := c.swarms[swarmID]
	if !ok {
		return nil, fmt.Errorf("unknown swarm %q", swarmID)
	}
	sw.ticks++
	attacking := sw.spec.Attack != AttackNone && sw.spec.Attack != "" && sw.ticks > sw.spec.AttackAfter

	ts := c.now().UTC()
	rows := make([]RobotTelemetry, 0, len(sw.robots))
	for _, r := range sw.robots {
		c.stepRobot(r, sw.spec.Model)
		if attacking && sw.spec.Attack == AttackHijack {
			// Commandeered swarm: one uniform state, energy burst.
			r.state = StateMoving
		}
		row := RobotTelemetry{
			RobotID:           r.id,
			Timestamp:         ts,
			Position:          r.pos,
			Velocity:          r.vel,
			OperationalState:  r.state,
			BatteryLevel:      r.battery,
			EnergyConsumption: c.energyFor(r.state),
			CommunicationRate: 8 + c.rng.Float64()*4,
		}
		if attacking && sw.spec.Attack == AttackHijack {
			row.EnergyConsumption *= 6
		}
		rows = append(rows, row)
	}

	commRange := sw.spec.CommRangeM
	if commRange <= 0 {
		commRange = 25
	}
	fillNeighbors(rows, commRange)

	if attacking && sw.spec.Attack == AttackSybil {
		rows = append(rows, c.phantomRobots(sw, ts)...)
	}
	return rows, nil
}

// CollectSensorData advances the named network one step and returns the
// latest reading for every sensor.
func (c *SimCollector) CollectSensorData(ctx context.Context, networkID string) ([]IoTSensorData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	nw, ok := c.nets[networkID]
	if !ok {
		return nil, fmt.Errorf("unknown IoT network %q", networkID)
	}
	nw.ticks++
	attacking := nw.spec.Attack != AttackNone && nw.spec.Attack != "" && nw.ticks > nw.spec.AttackAfter

	ts := c.now().UTC()
	rows := make([]IoTSensorData, 0, len(nw.sensors))
	for i, s := range nw.sensors {
		s.battery -= 0.01
		if s.battery < 0 {
			s.battery = 0
		}
		value := s.base + c.rng.Float64()*s.noise - s.noise/2
		if attacking {
			switch nw.spec.Attack {
			case AttackBotnet:
				// Centralized control: every sensor rides the same waveform.
				value = s.base + s.noise*3*math.Sin(float64(nw.ticks)/4) + c.rng.Float64()*s.noise*0.02
			case AttackPoisoning:
				if i == 0 && s.typ == SensorTemperature {
					value = 150
				}
			}
		}
		battery := s.battery
		rows = append(rows, IoTSensorData{
			SensorID:     s.id,
			Timestamp:    ts,
			SensorType:   s.typ,
			Value:        value,
			Unit:         s.unit,
			Location:     s.loc,
			BatteryLevel: &battery,
		})
	}
	return rows, nil
}

// stepRobot applies one tick of movement, battery drain, and state churn.
func (c *SimCollector) stepRobot(r *simRobot, model string) {
	speedMin, speedMax := modelSpeeds(model)
	heading := c.rng.Float64() * 2 * math.Pi
	speed := speedMin + c.rng.Float64()*(speedMax-speedMin)
	r.vel = Vector3{
		X: speed * math.Cos(heading),
		Y: speed * math.Sin(heading),
		Z: c.rng.Float64()*0.6 - 0.3,
	}
	// Gentle recentring keeps the flock loosely cohesive.
	if dist := r.pos.DistanceTo(Vector3{}); dist > 60 {
		r.vel.X = -r.pos.X / dist * speed
		r.vel.Y = -r.pos.Y / dist * speed
	}
	r.pos = Vector3{X: r.pos.X + r.vel.X, Y: r.pos.Y + r.vel.Y, Z: math.Max(0, r.pos.Z+r.vel.Z)}

	if r.state == StateCharging {
		r.battery += 2
		if r.battery >= 95 {
			r.state = StateIdle
		}
		return
	}
	r.battery -= modelDrain(model)
	if r.battery < 0 {
		r.battery = 0
	}
	switch {
	case r.battery <= 10:
		r.state = StateCharging
	case c.rng.Float64() < 0.01:
		r.state = StateError
	default:
		states := []OperationalState{StateIdle, StateMoving, StateMoving, StateWorking, StateWorking}
		r.state = states[c.rng.Intn(len(states))]
	}
}

// phantomRobots fabricates extra identities reporting alongside the real
// fleet, inflating the apparent swarm size by roughly 40%.
func (c *SimCollector) phantomRobots(sw *simSwarm, ts time.Time) []RobotTelemetry {
	n := int(math.Ceil(float64(len(sw.robots)) * 0.4))
	rows := make([]RobotTelemetry, 0, n)
	for i := 0; i < n; i++ {
		src := sw.robots[c.rng.Intn(len(sw.robots))]
		rows = append(rows, RobotTelemetry{
			RobotID:           fmt.Sprintf("%s-phantom-%d", sw.spec.SwarmID, i),
			Timestamp:         ts,
			Position:          src.pos,
			Velocity:          src.vel,
			OperationalState:  src.state,
			BatteryLevel:      src.battery,
			EnergyConsumption: c.energyFor(src.state),
			CommunicationRate: 8 + c.rng.Float64()*4,
		})
	}
	return rows
}

func (c *SimCollector) energyFor(state OperationalState) float64 {
	var base float64
	switch state {
	case StateIdle:
		base = 20
	case StateMoving:
		base = 80
	case StateWorking:
		base = 120
	case StateCharging:
		base = 5
	case StateError:
		base = 10
	default:
		base = 30
	}
	return base + c.rng.Float64()*base*0.1
}

// fillNeighbors links every pair of robots within commRange meters.
func fillNeighbors(rows []RobotTelemetry, commRange float64) {
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if rows[i].Position.DistanceTo(rows[j].Position) <= commRange {
				rows[i].NeighborIDs = append(rows[i].NeighborIDs, rows[j].RobotID)
				rows[j].NeighborIDs = append(rows[j].NeighborIDs, rows[i].RobotID)
			}
		}
	}
}

// modelSpeeds returns the speed envelope in m/s for a robot model.
func modelSpeeds(model string) (speedMin, speedMax float64) {
	switch model {
	case "scout":
		return 2.0, 5.0
	case "hauler":
		return 0.5, 2.0
	case "assembler":
		return 0.2, 1.0
	default:
		return 1.0, 3.0
	}
}

// modelDrain returns battery consumption per tick based on model.
func modelDrain(model string) float64 {
	switch model {
	case "scout":
		return 0.5
	case "hauler":
		return 0.3
	case "assembler":
		return 0.2
	default:
		return 0.4
	}
}

// sensorProfile returns the nominal value, noise band, and unit for a type.
func sensorProfile(t SensorType) (base, noise float64, unit string) {
	switch t {
	case SensorTemperature:
		return 22.5, 3, "celsius"
	case SensorHumidity:
		return 55, 10, "percent"
	case SensorPressure:
		return 1013, 6, "hPa"
	case SensorCO2:
		return 420, 60, "ppm"
	case SensorVibration:
		return 2, 1, "mm/s"
	default:
		return 0, 1, ""
	}
}

func generateRobotID(swarmID string, index int) string {
	// Include the robot's index along with a UUID to guarantee uniqueness
	return fmt.Sprintf("%s-%d-%s", swarmID, index, uuid.New().String())
}
