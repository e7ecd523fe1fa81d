package monitor

import (
	"context"
	"fmt"

	"swarmwatch/internal/detect"
)

// threatTopic maps a detection to its bus subject, e.g.
// threats.swarm.swarm_hijacking or threats.iot.data_poisoning.
func threatTopic(t detect.Threat) string {
	return fmt.Sprintf("threats.%s.%s", t.Category, t.Type)
}

// enqueue hands a detection to the publisher without ever blocking a
// monitoring loop. A full queue drops the event and counts the loss.
func (m *Monitor) enqueue(t detect.Threat) {
	select {
	case m.detections <- t:
	default:
		m.agg.RecordDropped()
		m.logger.Warn("publish queue full, detection dropped",
			"event_type", t.Type,
			"target_id", t.TargetID,
		)
	}
}

// publishLoop is the single consumer of the detections channel. Registry
// and bus failures are logged and swallowed; a missed delivery never stops
// detection. The loop drains the channel fully before signaling done.
func (m *Monitor) publishLoop() {
	defer close(m.pubDone)
	for t := range m.detections {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PublishTimeout.Std())
		if m.registry != nil {
			if err := m.registry.RegisterSecurityEvent(ctx, t); err != nil {
				m.logger.Error("security event registration failed",
					"event_type", t.Type,
					"target_id", t.TargetID,
					"err", err,
				)
			}
		}
		if m.bus != nil {
			if err := m.bus.Publish(ctx, threatTopic(t), t); err != nil {
				m.logger.Error("event publish failed",
					"topic", threatTopic(t),
					"err", err,
				)
			}
		}
		cancel()
	}
}
