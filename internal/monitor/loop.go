package monitor

import (
	"context"
	"sort"
	"time"

	"swarmwatch/internal/detect"
	"swarmwatch/internal/history"
	"swarmwatch/internal/telemetry"
)

// runSwarmLoop ticks one swarm until its context is canceled.
func (m *Monitor) runSwarmLoop(ctx context.Context, e *swarmEntry, done chan struct{}) {
	log := m.logger.With("swarm_id", e.id)
	defer m.finishLoop(&e.state, func() {
		m.agg.SwarmLoopStopped()
		close(done)
	})

	log.Info("swarm monitoring started", "tick_interval", m.cfg.SwarmTickInterval.Std())
	ticker := time.NewTicker(m.cfg.SwarmTickInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.swarmTick(ctx, e)
		case <-ctx.Done():
			log.Info("swarm monitoring stopped")
			return
		}
	}
}

// swarmTick collects, computes, scores, and runs the swarm detectors.
// Any failure skips the tick and leaves history untouched.
func (m *Monitor) swarmTick(ctx context.Context, e *swarmEntry) {
	collectCtx, cancel := context.WithTimeout(ctx, m.cfg.SwarmCollectTimeout.Std())
	rows, err := m.collector.CollectRobotTelemetry(collectCtx, e.id)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("telemetry collection failed, tick skipped", "swarm_id", e.id, "err", err)
		return
	}

	state, ok := m.calc.Compute(e.id, m.now().UTC(), rows)
	if !ok {
		// Fewer than two robots reporting is a quiet tick, not a failure.
		return
	}

	// Score against the history as it stood before this tick; the append
	// below must stay strictly after scoring.
	state.EntropyAnomalyScore = m.scorer.Score(state.CoordinationEntropy, e.aggregates.Series(entropyOf))
	state.EnergyAnomalyScore = m.scorer.Score(state.TotalEnergyConsumption, e.aggregates.Series(totalEnergyOf))
	state.TopologyAnomalyScore = m.scorer.Score(state.AverageNeighborCount, e.aggregates.Series(neighborsOf))

	var found []detect.Threat
	if t, ok := m.hijack.Detect(state); ok {
		found = append(found, t)
	}
	if t, ok := m.sybil.Detect(e.id, state.RobotCount, state.CoordinationEntropy, e.aggregates.Series(robotCountOf)); ok {
		found = append(found, t)
	}
	if t, ok := m.byzantine.Detect(e.id, rows); ok {
		found = append(found, t)
	}

	e.aggregates.Append(state)
	m.setLastState(state)
	m.report(found)
}

// runIoTLoop ticks one sensor network until its context is canceled.
func (m *Monitor) runIoTLoop(ctx context.Context, e *networkEntry, done chan struct{}) {
	log := m.logger.With("network_id", e.id)
	defer m.finishLoop(&e.state, func() {
		m.agg.NetworkLoopStopped()
		close(done)
	})

	log.Info("IoT monitoring started", "tick_interval", m.cfg.IoTTickInterval.Std())
	ticker := time.NewTicker(m.cfg.IoTTickInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.iotTick(ctx, e)
		case <-ctx.Done():
			log.Info("IoT monitoring stopped")
			return
		}
	}
}

// iotTick collects sensor readings, judges each for poisoning, then runs
// the correlation analysis over the freshest window.
func (m *Monitor) iotTick(ctx context.Context, e *networkEntry) {
	collectCtx, cancel := context.WithTimeout(ctx, m.cfg.IoTCollectTimeout.Std())
	rows, err := m.collector.CollectSensorData(collectCtx, e.id)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("sensor collection failed, tick skipped", "network_id", e.id, "err", err)
		return
	}

	var found []detect.Threat
	for _, row := range rows {
		if t, ok := m.poisoning.Detect(e.id, row); ok {
			found = append(found, t)
		}
		buf, ok := e.readings[row.SensorID]
		if !ok {
			// Sensors can appear mid-run; track them from first sight.
			buf = history.NewBuffer[float64](m.cfg.HistoryCapacity)
			e.readings[row.SensorID] = buf
		}
		buf.Append(row.Value)
	}

	if t, ok := m.botnet.Detect(e.id, e.sensorSeries(m.cfg.BotnetWindow), len(e.readings)); ok {
		found = append(found, t)
	}
	m.report(found)
}

// sensorSeries returns per-sensor trailing windows in stable id order so
// the correlation analysis picks the same subset every tick.
func (e *networkEntry) sensorSeries(window int) []detect.SensorSeries {
	ids := make([]string, 0, len(e.readings))
	for id := range e.readings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]detect.SensorSeries, 0, len(ids))
	for _, id := range ids {
		out = append(out, detect.SensorSeries{SensorID: id, Values: e.readings[id].LastN(window)})
	}
	return out
}

// report counts detections, stamps the configured confidence, and hands
// them to the publisher.
func (m *Monitor) report(found []detect.Threat) {
	for _, t := range found {
		t.Confidence = m.cfg.Confidence
		m.agg.RecordThreat(t.Type)
		m.logger.Warn("threat detected",
			"event_type", t.Type,
			"target_id", t.TargetID,
			"severity", t.Severity,
			"category", t.Category,
		)
		m.enqueue(t)
	}
}

func entropyOf(st telemetry.SwarmThermodynamics) float64 { return st.CoordinationEntropy }

func totalEnergyOf(st telemetry.SwarmThermodynamics) float64 { return st.TotalEnergyConsumption }

func neighborsOf(st telemetry.SwarmThermodynamics) float64 { return st.AverageNeighborCount }

func robotCountOf(st telemetry.SwarmThermodynamics) float64 { return float64(st.RobotCount) }
