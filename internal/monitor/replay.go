package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"swarmwatch/internal/config"
	"swarmwatch/internal/stats"
	"swarmwatch/internal/telemetry"
)

// ReplayResult summarizes one re-analysis run.
type ReplayResult struct {
	Entries int
	Stats   stats.Snapshot
}

// replayFeed serves the batch loaded from the current log entry to the
// next collector call.
type replayFeed struct {
	robots  []telemetry.RobotTelemetry
	sensors []telemetry.IoTSensorData
}

func (f *replayFeed) CollectRobotTelemetry(ctx context.Context, swarmID string) ([]telemetry.RobotTelemetry, error) {
	return f.robots, nil
}

func (f *replayFeed) CollectSensorData(ctx context.Context, networkID string) ([]telemetry.IoTSensorData, error) {
	return f.sensors, nil
}

// ReplayLog feeds a recorded telemetry log back through the full scoring
// and detection pipeline. Entities register themselves on first appearance
// in the log, history builds up exactly as it did live, and detections
// reach the registry and bus through the normal publisher. A speed > 0
// paces entries by their recorded spacing; speed <= 0 analyzes as fast as
// the reader delivers.
func ReplayLog(ctx context.Context, cfg config.MonitorConfig, r io.Reader, registry SecurityRegistry, bus EventBus, logger *slog.Logger, speed float64) (ReplayResult, error) {
	feed := &replayFeed{}
	m := New(cfg, feed, registry, bus, stats.NewAggregator(), logger)
	defer m.Close()

	// Analysis timestamps come from the log, not the wall clock. Only the
	// replay goroutine ticks, so the swap is safe.
	var clock time.Time
	m.now = func() time.Time { return clock }

	dec := json.NewDecoder(r)
	var res ReplayResult
	var prev time.Time
	for {
		if err := ctx.Err(); err != nil {
			res.Stats = m.Statistics()
			return res, err
		}
		var entry logEntry
		if err := dec.Decode(&entry); err != nil {
			res.Stats = m.Statistics()
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return res, fmt.Errorf("decode telemetry log: %w", err)
		}
		if !prev.IsZero() && speed > 0 {
			diff := entry.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					res.Stats = m.Statistics()
					return res, ctx.Err()
				}
			}
		}
		prev = entry.Timestamp
		clock = entry.Timestamp

		switch entry.Kind {
		case logKindSwarm:
			e, err := m.replaySwarmEntry(entry)
			if err != nil {
				res.Stats = m.Statistics()
				return res, err
			}
			feed.robots = entry.Robots
			m.swarmTick(ctx, e)
		case logKindIoT:
			e, err := m.replayNetworkEntry(entry)
			if err != nil {
				res.Stats = m.Statistics()
				return res, err
			}
			feed.sensors = entry.Sensors
			m.iotTick(ctx, e)
		default:
			res.Stats = m.Statistics()
			return res, fmt.Errorf("telemetry log entry %d: unknown kind %q", res.Entries+1, entry.Kind)
		}
		res.Entries++
	}
}

// ReplayLogFile opens a telemetry log and re-analyzes it.
func ReplayLogFile(ctx context.Context, cfg config.MonitorConfig, path string, registry SecurityRegistry, bus EventBus, logger *slog.Logger, speed float64) (ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("open telemetry log: %w", err)
	}
	defer f.Close()
	return ReplayLog(ctx, cfg, f, registry, bus, logger, speed)
}

// replaySwarmEntry returns the swarm's entry, registering it on first
// sight with the robot ids present in the batch.
func (m *Monitor) replaySwarmEntry(entry logEntry) (*swarmEntry, error) {
	m.mu.Lock()
	e, ok := m.swarms[entry.ID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}
	ids := make([]string, 0, len(entry.Robots))
	for _, row := range entry.Robots {
		ids = append(ids, row.RobotID)
	}
	if err := m.RegisterSwarm(entry.ID, ids); err != nil {
		return nil, err
	}
	m.mu.Lock()
	e = m.swarms[entry.ID]
	m.mu.Unlock()
	return e, nil
}

// replayNetworkEntry mirrors replaySwarmEntry for IoT networks.
func (m *Monitor) replayNetworkEntry(entry logEntry) (*networkEntry, error) {
	m.mu.Lock()
	e, ok := m.networks[entry.ID]
	m.mu.Unlock()
	if ok {
		return e, nil
	}
	ids := make([]string, 0, len(entry.Sensors))
	for _, row := range entry.Sensors {
		ids = append(ids, row.SensorID)
	}
	if err := m.RegisterIoTNetwork(entry.ID, ids); err != nil {
		return nil, err
	}
	m.mu.Lock()
	e = m.networks[entry.ID]
	m.mu.Unlock()
	return e, nil
}
