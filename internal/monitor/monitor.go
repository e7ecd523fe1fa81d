// Monitor orchestrating per-entity security analysis loops
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"swarmwatch/internal/config"
	"swarmwatch/internal/detect"
	"swarmwatch/internal/history"
	"swarmwatch/internal/logging"
	"swarmwatch/internal/stats"
	"swarmwatch/internal/telemetry"
	"swarmwatch/internal/thermo"
)

// Collector supplies the latest device readings for a monitored entity.
// An empty result is a valid no-data tick, not an error.
type Collector interface {
	CollectRobotTelemetry(ctx context.Context, swarmID string) ([]telemetry.RobotTelemetry, error)
	CollectSensorData(ctx context.Context, networkID string) ([]telemetry.IoTSensorData, error)
}

// SecurityRegistry records confirmed detections.
type SecurityRegistry interface {
	RegisterSecurityEvent(ctx context.Context, threat detect.Threat) error
}

// EventBus broadcasts detections to downstream consumers.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
}

var (
	// ErrNotRegistered is returned for operations on unknown entity ids.
	ErrNotRegistered = errors.New("entity not registered")
	// ErrClosed is returned once the monitor has shut down.
	ErrClosed = errors.New("monitor closed")
)

// loopState tracks one entity's monitoring lifecycle.
type loopState int

const (
	stateNotStarted loopState = iota
	stateRunning
	stateStopping
	stateStopped
)

// swarmEntry holds one registered swarm. The aggregates buffer is owned by
// the entry's loop goroutine while the loop runs.
type swarmEntry struct {
	id         string
	robotIDs   []string
	state      loopState
	cancel     context.CancelFunc
	done       chan struct{}
	aggregates *history.Buffer[telemetry.SwarmThermodynamics]
}

// networkEntry holds one registered IoT network with per-sensor value
// buffers, same ownership rule as swarmEntry.
type networkEntry struct {
	id        string
	sensorIDs []string
	state     loopState
	cancel    context.CancelFunc
	done      chan struct{}
	readings  map[string]*history.Buffer[float64]
}

// Monitor runs one independent analysis loop per registered swarm and IoT
// network, scoring telemetry against per-entity baselines and forwarding
// detections to the registry and event bus through a single publisher.
type Monitor struct {
	cfg       config.MonitorConfig
	collector Collector
	registry  SecurityRegistry
	bus       EventBus
	agg       *stats.Aggregator
	logger    *slog.Logger
	now       func() time.Time

	calc      *thermo.Calculator
	scorer    *history.Scorer
	hijack    *detect.HijackDetector
	sybil     *detect.SybilDetector
	botnet    *detect.BotnetDetector
	poisoning *detect.PoisoningDetector
	byzantine detect.ByzantineDetector

	mu         sync.Mutex
	closed     bool
	swarms     map[string]*swarmEntry
	networks   map[string]*networkEntry
	lastStates map[string]telemetry.SwarmThermodynamics

	detections chan detect.Threat
	pubDone    chan struct{}
}

// New wires a Monitor from its collaborators. registry and bus may be nil;
// detections then only feed the statistics counters and the log.
func New(cfg config.MonitorConfig, collector Collector, registry SecurityRegistry, bus EventBus, agg *stats.Aggregator, logger *slog.Logger) *Monitor {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.New()
	}
	if agg == nil {
		agg = stats.NewAggregator()
	}

	swarmThresholds := detect.SwarmThresholds{
		EntropyScore:  cfg.EntropyThreshold,
		EnergyScore:   cfg.EnergyThreshold,
		TopologyScore: cfg.TopologyThreshold,
		SybilWindow:   cfg.SybilWindow,
		SybilIncrease: cfg.SybilIncrease,
	}
	iotThresholds := detect.DefaultIoTThresholds()
	iotThresholds.BotnetCorrelation = cfg.BotnetCorrelation
	iotThresholds.BotnetWindow = cfg.BotnetWindow

	m := &Monitor{
		cfg:        cfg,
		collector:  collector,
		registry:   registry,
		bus:        bus,
		agg:        agg,
		logger:     logger,
		now:        time.Now,
		calc:       thermo.NewCalculator(),
		scorer:     &history.Scorer{MinSamples: cfg.BaselineMinSamples, StdDevFloor: cfg.StdDevFloor},
		hijack:     detect.NewHijackDetector(swarmThresholds),
		sybil:      detect.NewSybilDetector(swarmThresholds),
		botnet:     detect.NewBotnetDetector(iotThresholds),
		poisoning:  detect.NewPoisoningDetector(),
		byzantine:  detect.NoopByzantineDetector{},
		swarms:     make(map[string]*swarmEntry),
		networks:   make(map[string]*networkEntry),
		lastStates: make(map[string]telemetry.SwarmThermodynamics),
		detections: make(chan detect.Threat, cfg.PublishQueue),
		pubDone:    make(chan struct{}),
	}
	go m.publishLoop()
	return m
}

// SetByzantineDetector replaces the placeholder consensus detector. Call
// before any loop is started.
func (m *Monitor) SetByzantineDetector(d detect.ByzantineDetector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d != nil {
		m.byzantine = d
	}
}

// RegisterSwarm creates empty history buffers for a swarm. Registering an
// already known id logs and leaves the existing registration untouched.
func (m *Monitor) RegisterSwarm(swarmID string, robotIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.swarms[swarmID]; ok {
		m.logger.Warn("swarm already registered", "swarm_id", swarmID)
		return nil
	}
	m.swarms[swarmID] = &swarmEntry{
		id:         swarmID,
		robotIDs:   append([]string(nil), robotIDs...),
		aggregates: history.NewBuffer[telemetry.SwarmThermodynamics](m.cfg.HistoryCapacity),
	}
	m.agg.AddRobots(len(robotIDs))
	m.logger.Info("swarm registered", "swarm_id", swarmID, "robots", len(robotIDs))
	return nil
}

// RegisterIoTNetwork creates empty per-sensor buffers for a network.
// Idempotent like RegisterSwarm.
func (m *Monitor) RegisterIoTNetwork(networkID string, sensorIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.networks[networkID]; ok {
		m.logger.Warn("IoT network already registered", "network_id", networkID)
		return nil
	}
	e := &networkEntry{
		id:        networkID,
		sensorIDs: append([]string(nil), sensorIDs...),
		readings:  make(map[string]*history.Buffer[float64], len(sensorIDs)),
	}
	for _, id := range sensorIDs {
		e.readings[id] = history.NewBuffer[float64](m.cfg.HistoryCapacity)
	}
	m.networks[networkID] = e
	m.agg.AddSensors(len(sensorIDs))
	m.logger.Info("IoT network registered", "network_id", networkID, "sensors", len(sensorIDs))
	return nil
}

// StartSwarmMonitoring spawns the swarm's analysis loop. Starting a running
// swarm is a no-op; a second loop is never spawned. A start racing an
// in-flight stop waits for the old loop to finish first.
func (m *Monitor) StartSwarmMonitoring(swarmID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if m.closed {
			return ErrClosed
		}
		e, ok := m.swarms[swarmID]
		if !ok {
			return ErrNotRegistered
		}
		switch e.state {
		case stateRunning:
			m.logger.Warn("swarm monitoring already running", "swarm_id", swarmID)
			return nil
		case stateStopping:
			done := e.done
			m.mu.Unlock()
			<-done
			m.mu.Lock()
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		e.done = make(chan struct{})
		e.state = stateRunning
		m.agg.SwarmLoopStarted()
		go m.runSwarmLoop(ctx, e, e.done)
		return nil
	}
}

// StartIoTMonitoring spawns the network's analysis loop, idempotent like
// StartSwarmMonitoring.
func (m *Monitor) StartIoTMonitoring(networkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if m.closed {
			return ErrClosed
		}
		e, ok := m.networks[networkID]
		if !ok {
			return ErrNotRegistered
		}
		switch e.state {
		case stateRunning:
			m.logger.Warn("IoT monitoring already running", "network_id", networkID)
			return nil
		case stateStopping:
			done := e.done
			m.mu.Unlock()
			<-done
			m.mu.Lock()
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		e.done = make(chan struct{})
		e.state = stateRunning
		m.agg.NetworkLoopStarted()
		go m.runIoTLoop(ctx, e, e.done)
		return nil
	}
}

// StopMonitoring cancels the entity's loop and waits for it to exit. The
// loop observes the signal within one tick interval. Stopping an entity
// that is not running is a no-op.
func (m *Monitor) StopMonitoring(id string) error {
	m.mu.Lock()
	if e, ok := m.swarms[id]; ok {
		cancel, done := m.beginStop(&e.state, e.cancel, e.done)
		m.mu.Unlock()
		waitStop(cancel, done)
		return nil
	}
	if e, ok := m.networks[id]; ok {
		cancel, done := m.beginStop(&e.state, e.cancel, e.done)
		m.mu.Unlock()
		waitStop(cancel, done)
		return nil
	}
	m.mu.Unlock()
	return ErrNotRegistered
}

// beginStop transitions a running entry to stopping. Caller holds m.mu.
func (m *Monitor) beginStop(state *loopState, cancel context.CancelFunc, done chan struct{}) (context.CancelFunc, chan struct{}) {
	if *state != stateRunning {
		return nil, nil
	}
	*state = stateStopping
	return cancel, done
}

func waitStop(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// UnregisterSwarm stops the swarm's loop if running and frees its buffers.
func (m *Monitor) UnregisterSwarm(swarmID string) error {
	m.mu.Lock()
	e, ok := m.swarms[swarmID]
	if !ok {
		m.mu.Unlock()
		return ErrNotRegistered
	}
	cancel, done := m.beginStop(&e.state, e.cancel, e.done)
	m.mu.Unlock()
	waitStop(cancel, done)

	m.mu.Lock()
	delete(m.swarms, swarmID)
	delete(m.lastStates, swarmID)
	m.agg.AddRobots(-len(e.robotIDs))
	m.mu.Unlock()
	m.logger.Info("swarm unregistered", "swarm_id", swarmID)
	return nil
}

// UnregisterIoTNetwork stops the network's loop if running and frees its
// buffers.
func (m *Monitor) UnregisterIoTNetwork(networkID string) error {
	m.mu.Lock()
	e, ok := m.networks[networkID]
	if !ok {
		m.mu.Unlock()
		return ErrNotRegistered
	}
	cancel, done := m.beginStop(&e.state, e.cancel, e.done)
	m.mu.Unlock()
	waitStop(cancel, done)

	m.mu.Lock()
	delete(m.networks, networkID)
	m.agg.AddSensors(-len(e.sensorIDs))
	m.mu.Unlock()
	m.logger.Info("IoT network unregistered", "network_id", networkID)
	return nil
}

// Statistics returns the current detection and inventory counters.
func (m *Monitor) Statistics() stats.Snapshot {
	return m.agg.Snapshot()
}

// ThermoSnapshot returns the latest aggregate for every swarm that has
// produced one, ordered by swarm id.
func (m *Monitor) ThermoSnapshot() []telemetry.SwarmThermodynamics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]telemetry.SwarmThermodynamics, 0, len(m.lastStates))
	for _, st := range m.lastStates {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SwarmID < out[j].SwarmID })
	return out
}

// Close stops every loop, drains the publisher, and rejects further use.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	type pending struct {
		cancel context.CancelFunc
		done   chan struct{}
	}
	var waits []pending
	for _, e := range m.swarms {
		cancel, done := m.beginStop(&e.state, e.cancel, e.done)
		if cancel != nil {
			waits = append(waits, pending{cancel, done})
		}
	}
	for _, e := range m.networks {
		cancel, done := m.beginStop(&e.state, e.cancel, e.done)
		if cancel != nil {
			waits = append(waits, pending{cancel, done})
		}
	}
	m.mu.Unlock()

	for _, w := range waits {
		waitStop(w.cancel, w.done)
	}
	close(m.detections)
	<-m.pubDone
	m.logger.Info("monitor closed")
	return nil
}

// setLastState records the newest aggregate for snapshot readers.
func (m *Monitor) setLastState(st telemetry.SwarmThermodynamics) {
	m.mu.Lock()
	m.lastStates[st.SwarmID] = st
	m.mu.Unlock()
}

// finishLoop marks an exited loop stopped. Called from the loop goroutine.
func (m *Monitor) finishLoop(state *loopState, onStopped func()) {
	m.mu.Lock()
	*state = stateStopped
	m.mu.Unlock()
	onStopped()
}
