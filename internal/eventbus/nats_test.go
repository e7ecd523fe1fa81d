package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"swarmwatch/internal/detect"
)

type mockNATSConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (m *mockNATSConn) Publish(subj string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subj)
	m.payloads = append(m.payloads, data)
	return nil
}

func (m *mockNATSConn) Drain() error {
	m.drained = true
	return nil
}

func TestNATSSubjectPrefix(t *testing.T) {
	conn := &mockNATSConn{}
	bus := &NATS{conn: conn, prefix: "swarmwatch"}

	threat := detect.NewThreat(detect.ThreatSwarmHijacking, "swarm-1", detect.SeverityHigh, detect.CategorySwarm, detect.SourceSwarmMonitor)
	if err := bus.Publish(context.Background(), "threats.swarm.swarm_hijacking", threat); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(conn.subjects) != 1 || conn.subjects[0] != "swarmwatch.threats.swarm.swarm_hijacking" {
		t.Errorf("subjects = %v", conn.subjects)
	}
	var got detect.Threat
	if err := json.Unmarshal(conn.payloads[0], &got); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if got.Type != detect.ThreatSwarmHijacking || got.TargetID != "swarm-1" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestNATSNoPrefix(t *testing.T) {
	conn := &mockNATSConn{}
	bus := &NATS{conn: conn}

	if err := bus.Publish(context.Background(), "threats.iot.data_poisoning", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if conn.subjects[0] != "threats.iot.data_poisoning" {
		t.Errorf("subject = %s, want bare topic", conn.subjects[0])
	}
}

func TestNATSPublishError(t *testing.T) {
	conn := &mockNATSConn{err: errors.New("no responders")}
	bus := &NATS{conn: conn, prefix: "swarmwatch"}

	if err := bus.Publish(context.Background(), "t", nil); err == nil {
		t.Errorf("expected publish error")
	}
}

func TestNATSCloseDrains(t *testing.T) {
	conn := &mockNATSConn{}
	bus := &NATS{conn: conn}
	if err := bus.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !conn.drained {
		t.Errorf("close must drain the connection")
	}
}
