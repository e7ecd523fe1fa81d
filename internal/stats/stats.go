// Package stats aggregates detection counters and monitored inventory.
package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"swarmwatch/internal/detect"
)

var (
	threatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swarmwatch_threats_total",
		Help: "Total detections by event type",
	}, []string{"event_type"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swarmwatch_dropped_detections_total",
		Help: "Detections dropped because the publish queue was full",
	})

	monitoredEntities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swarmwatch_monitored_entities",
		Help: "Entities with a running monitoring loop",
	}, []string{"category"})

	inventorySize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swarmwatch_inventory_size",
		Help: "Registered robots and sensors",
	}, []string{"kind"})
)

// Aggregator counts detections and tracks monitored inventory. All methods
// are safe for concurrent use.
type Aggregator struct {
	threats    atomic.Uint64
	hijacks    atomic.Uint64
	botnets    atomic.Uint64
	sybils     atomic.Uint64
	byzantines atomic.Uint64
	poisonings atomic.Uint64
	dropped    atomic.Uint64

	swarms   atomic.Int64
	networks atomic.Int64
	robots   atomic.Int64
	sensors  atomic.Int64
}

// NewAggregator creates an Aggregator with all counters at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// RecordThreat counts one detection.
func (a *Aggregator) RecordThreat(t detect.ThreatType) {
	a.threats.Add(1)
	threatsTotal.WithLabelValues(string(t)).Inc()
	switch t {
	case detect.ThreatSwarmHijacking:
		a.hijacks.Add(1)
	case detect.ThreatIoTBotnet:
		a.botnets.Add(1)
	case detect.ThreatSybilAttack:
		a.sybils.Add(1)
	case detect.ThreatByzantineFault:
		a.byzantines.Add(1)
	case detect.ThreatDataPoisoning:
		a.poisonings.Add(1)
	}
}

// RecordDropped counts a detection lost to a full publish queue.
func (a *Aggregator) RecordDropped() {
	a.dropped.Add(1)
	droppedTotal.Inc()
}

// SwarmLoopStarted and SwarmLoopStopped track running swarm loops.
func (a *Aggregator) SwarmLoopStarted() {
	a.swarms.Add(1)
	monitoredEntities.WithLabelValues("swarm").Inc()
}

func (a *Aggregator) SwarmLoopStopped() {
	a.swarms.Add(-1)
	monitoredEntities.WithLabelValues("swarm").Dec()
}

// NetworkLoopStarted and NetworkLoopStopped track running IoT loops.
func (a *Aggregator) NetworkLoopStarted() {
	a.networks.Add(1)
	monitoredEntities.WithLabelValues("iot").Inc()
}

func (a *Aggregator) NetworkLoopStopped() {
	a.networks.Add(-1)
	monitoredEntities.WithLabelValues("iot").Dec()
}

// AddRobots adjusts the registered robot inventory, negative to remove.
func (a *Aggregator) AddRobots(n int) {
	a.robots.Add(int64(n))
	inventorySize.WithLabelValues("robot").Add(float64(n))
}

// AddSensors adjusts the registered sensor inventory, negative to remove.
func (a *Aggregator) AddSensors(n int) {
	a.sensors.Add(int64(n))
	inventorySize.WithLabelValues("sensor").Add(float64(n))
}

// Snapshot is one consistent read of all counters.
type Snapshot struct {
	ThreatsDetected         uint64 `json:"threats_detected"`
	SwarmHijackingDetected  uint64 `json:"swarm_hijacking_detected"`
	IoTBotnetDetected       uint64 `json:"iot_botnet_detected"`
	SybilAttacksDetected    uint64 `json:"sybil_attacks_detected"`
	ByzantineFaultsDetected uint64 `json:"byzantine_faults_detected"`
	DataPoisoningDetected   uint64 `json:"data_poisoning_detected"`
	DroppedDetections       uint64 `json:"dropped_detections"`
	MonitoredSwarms         int64  `json:"monitored_swarms"`
	MonitoredIoTNetworks    int64  `json:"monitored_iot_networks"`
	TotalRobots             int64  `json:"total_robots"`
	TotalIoTSensors         int64  `json:"total_iot_sensors"`
}

// Snapshot returns the current counter values.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		ThreatsDetected:         a.threats.Load(),
		SwarmHijackingDetected:  a.hijacks.Load(),
		IoTBotnetDetected:       a.botnets.Load(),
		SybilAttacksDetected:    a.sybils.Load(),
		ByzantineFaultsDetected: a.byzantines.Load(),
		DataPoisoningDetected:   a.poisonings.Load(),
		DroppedDetections:       a.dropped.Load(),
		MonitoredSwarms:         a.swarms.Load(),
		MonitoredIoTNetworks:    a.networks.Load(),
		TotalRobots:             a.robots.Load(),
		TotalIoTSensors:         a.sensors.Load(),
	}
}
