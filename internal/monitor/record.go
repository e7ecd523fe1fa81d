package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"swarmwatch/internal/logging"
	"swarmwatch/internal/telemetry"
)

const (
	logKindSwarm = "swarm"
	logKindIoT   = "iot"
)

// logEntry is one collected batch in a telemetry log, one JSON object per
// line. The timestamp is the collection time and drives replay pacing.
type logEntry struct {
	Kind      string                     `json:"kind"`
	ID        string                     `json:"id"`
	Timestamp time.Time                  `json:"ts"`
	Robots    []telemetry.RobotTelemetry `json:"robots,omitempty"`
	Sensors   []telemetry.IoTSensorData  `json:"sensors,omitempty"`
}

// RecordingCollector passes collections through to the wrapped collector
// while appending every successful batch to a JSONL telemetry log that
// ReplayLog can re-analyze later. A failed append loses that log line,
// never the tick.
type RecordingCollector struct {
	inner  Collector
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	enc *json.Encoder
}

// NewRecordingCollector wraps inner so that everything it serves is also
// written to w. The writer is shared by all monitoring loops; writes are
// serialized here.
func NewRecordingCollector(inner Collector, w io.Writer, logger *slog.Logger) *RecordingCollector {
	if logger == nil {
		logger = logging.New()
	}
	return &RecordingCollector{
		inner:  inner,
		logger: logger,
		now:    time.Now,
		enc:    json.NewEncoder(w),
	}
}

func (r *RecordingCollector) CollectRobotTelemetry(ctx context.Context, swarmID string) ([]telemetry.RobotTelemetry, error) {
	rows, err := r.inner.CollectRobotTelemetry(ctx, swarmID)
	if err != nil {
		return nil, err
	}
	r.append(logEntry{Kind: logKindSwarm, ID: swarmID, Timestamp: r.now().UTC(), Robots: rows})
	return rows, nil
}

func (r *RecordingCollector) CollectSensorData(ctx context.Context, networkID string) ([]telemetry.IoTSensorData, error) {
	rows, err := r.inner.CollectSensorData(ctx, networkID)
	if err != nil {
		return nil, err
	}
	r.append(logEntry{Kind: logKindIoT, ID: networkID, Timestamp: r.now().UTC(), Sensors: rows})
	return rows, nil
}

func (r *RecordingCollector) append(entry logEntry) {
	r.mu.Lock()
	err := r.enc.Encode(entry)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("telemetry log append failed", "kind", entry.Kind, "id", entry.ID, "err", err)
	}
}
