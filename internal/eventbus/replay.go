package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"swarmwatch/internal/detect"
)

// replayRecord is a Record with its event decoded into the threat model.
type replayRecord struct {
	Topic string        `json:"topic"`
	Event detect.Threat `json:"event"`
}

// Replay re-publishes recorded events from r to bus and returns how many
// were sent. A speed >0 paces playback by the recorded timestamps; speed
// <= 0 publishes as fast as possible.
func Replay(ctx context.Context, r io.Reader, bus Bus, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	count := 0
	for {
		var rec replayRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := rec.Event.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return count, ctx.Err()
				}
			}
		}
		if err := bus.Publish(ctx, rec.Topic, rec.Event); err != nil {
			return count, err
		}
		prev = rec.Event.Timestamp
		count++
	}
}

// ReplayFile opens an event log written by File and replays its records.
func ReplayFile(ctx context.Context, path string, bus Bus, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Replay(ctx, f, bus, speed)
}
