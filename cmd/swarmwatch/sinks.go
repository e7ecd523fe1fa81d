package main

import (
	"log/slog"

	"swarmwatch/internal/config"
	"swarmwatch/internal/eventbus"
	"swarmwatch/internal/monitor"
	"swarmwatch/internal/registry"
	"swarmwatch/internal/telemetry"
)

// newRegistries builds the security event sinks. The memory registry is
// always present so the admin API can serve recent threats; it is listed
// first so a GreptimeDB outage never hides events from the API.
func newRegistries(cfg *config.Config, logOnly bool) (registry.Registry, *registry.Memory, error) {
	mem := registry.NewMemory(cfg.Registry.MemoryCapacity)
	if logOnly || !cfg.Registry.Greptime.Enabled {
		return mem, mem, nil
	}
	gt, err := registry.NewGreptime(cfg.Registry.Greptime, cfg.ClusterID)
	if err != nil {
		return nil, nil, err
	}
	return registry.NewMulti(mem, gt), mem, nil
}

// newBuses assembles the enabled event transports and a cleanup that
// flushes and closes them. With nothing enabled the bus is nil; detections
// then only reach the registry and the statistics counters.
func newBuses(cfg *config.Config, logOnly bool, logger *slog.Logger) (eventbus.Bus, func(), error) {
	var buses []eventbus.Bus
	cleanup := func() {}

	if cfg.Bus.LogEvents || logOnly {
		buses = append(buses, eventbus.NewLog(logger))
	}
	if cfg.Bus.File != "" {
		fb, err := eventbus.NewFile(cfg.Bus.File)
		if err != nil {
			return nil, nil, err
		}
		buses = append(buses, fb)
		prev := cleanup
		cleanup = func() { fb.Close(); prev() }
	}
	if cfg.Bus.NATS.Enabled && !logOnly {
		nb, err := eventbus.NewNATS(cfg.Bus.NATS)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		buses = append(buses, nb)
		prev := cleanup
		cleanup = func() { nb.Close(); prev() }
	}

	switch len(buses) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return buses[0], cleanup, nil
	default:
		return eventbus.NewMulti(buses...), cleanup, nil
	}
}

// registerEntities adds every configured swarm and IoT network to the
// collector and the monitor, then starts their loops.
func registerEntities(cfg *config.Config, collector *telemetry.SimCollector, m *monitor.Monitor) error {
	for _, sw := range cfg.Swarms {
		ids := collector.AddSwarm(telemetry.SwarmSpec{
			SwarmID:     sw.ID,
			Model:       sw.Model,
			Robots:      sw.Robots,
			CommRangeM:  sw.CommRangeM,
			Attack:      attackType(sw.Attack),
			AttackAfter: sw.AttackAfter,
		})
		if err := m.RegisterSwarm(sw.ID, ids); err != nil {
			return err
		}
		if err := m.StartSwarmMonitoring(sw.ID); err != nil {
			return err
		}
	}
	for _, nw := range cfg.Networks {
		specs := make([]telemetry.SensorSpec, 0, len(nw.Sensors))
		for _, g := range nw.Sensors {
			specs = append(specs, telemetry.SensorSpec{Type: telemetry.SensorType(g.Type), Count: g.Count})
		}
		ids := collector.AddNetwork(telemetry.NetworkSpec{
			NetworkID:   nw.ID,
			Sensors:     specs,
			Attack:      attackType(nw.Attack),
			AttackAfter: nw.AttackAfter,
		})
		if err := m.RegisterIoTNetwork(nw.ID, ids); err != nil {
			return err
		}
		if err := m.StartIoTMonitoring(nw.ID); err != nil {
			return err
		}
	}
	return nil
}

// attackType maps the config attack name to the collector's enum.
func attackType(s string) telemetry.AttackType {
	if s == "" {
		return telemetry.AttackNone
	}
	return telemetry.AttackType(s)
}
