package eventbus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"swarmwatch/internal/detect"
)

// captureBus records published topics.
type captureBus struct {
	topics []string
	err    error
}

func (b *captureBus) Publish(_ context.Context, topic string, _ any) error {
	if b.err != nil {
		return b.err
	}
	b.topics = append(b.topics, topic)
	return nil
}

func TestMultiFansOut(t *testing.T) {
	a := &captureBus{}
	b := &captureBus{}
	m := NewMulti(a, b)

	if err := m.Publish(context.Background(), "threats.iot.data_poisoning", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(a.topics) != 1 || len(b.topics) != 1 {
		t.Errorf("fan-out reached %d/%d buses, want 1/1", len(a.topics), len(b.topics))
	}
}

func TestMultiStopsOnFirstError(t *testing.T) {
	first := &captureBus{}
	failing := &captureBus{err: errors.New("transport down")}
	last := &captureBus{}
	m := NewMulti(first, failing, last)

	if err := m.Publish(context.Background(), "t", nil); err == nil {
		t.Fatalf("expected error from failing bus")
	}
	if len(first.topics) != 1 {
		t.Errorf("first bus got %d events, want 1", len(first.topics))
	}
	if len(last.topics) != 0 {
		t.Errorf("bus after the failure got %d events, want 0", len(last.topics))
	}
}

func TestLogPublishNeverFails(t *testing.T) {
	l := NewLog(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := l.Publish(context.Background(), "threats.swarm.sybil_attack", map[string]any{"x": 1}); err != nil {
		t.Errorf("log publish: %v", err)
	}
}

func TestFileBusAppendsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	fb, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	threat := detect.NewThreat(detect.ThreatIoTBotnet, "net-1", detect.SeverityCritical, detect.CategoryIoT, detect.SourceIoTMonitor)
	if err := fb.Publish(context.Background(), "threats.iot.iot_botnet", threat); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := fb.Publish(context.Background(), "threats.iot.iot_botnet", threat); err != nil {
		t.Fatalf("publish: %v", err)
	}
	fb.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var count int
	for dec.More() {
		var rec struct {
			Topic string        `json:"topic"`
			Event detect.Threat `json:"event"`
		}
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode record %d: %v", count, err)
		}
		if rec.Topic != "threats.iot.iot_botnet" {
			t.Errorf("topic = %s", rec.Topic)
		}
		if rec.Event.Type != detect.ThreatIoTBotnet || rec.Event.TargetID != "net-1" {
			t.Errorf("unexpected event %+v", rec.Event)
		}
		count++
	}
	if count != 2 {
		t.Errorf("decoded %d records, want 2", count)
	}
}
