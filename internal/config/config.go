// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry human-readable values
// like "500ms" or "2s".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MonitorConfig tunes the analysis loops, baselines, and detectors.
type MonitorConfig struct {
	SwarmTickInterval   Duration `yaml:"swarm_tick_interval"`
	IoTTickInterval     Duration `yaml:"iot_tick_interval"`
	SwarmCollectTimeout Duration `yaml:"swarm_collect_timeout"`
	IoTCollectTimeout   Duration `yaml:"iot_collect_timeout"`
	PublishTimeout      Duration `yaml:"publish_timeout"`
	PublishQueue        int      `yaml:"publish_queue"`
	HistoryCapacity     int      `yaml:"history_capacity"`
	BaselineMinSamples  int      `yaml:"baseline_min_samples"`
	StdDevFloor         float64  `yaml:"stddev_floor"`
	Confidence          float64  `yaml:"confidence"`
	EntropyThreshold    float64  `yaml:"entropy_threshold"`
	EnergyThreshold     float64  `yaml:"energy_threshold"`
	TopologyThreshold   float64  `yaml:"topology_threshold"`
	SybilWindow         int      `yaml:"sybil_window"`
	SybilIncrease       float64  `yaml:"sybil_increase"`
	BotnetCorrelation   float64  `yaml:"botnet_correlation"`
	BotnetWindow        int      `yaml:"botnet_window"`
}

// ApplyDefaults fills zero fields with production defaults.
func (c *MonitorConfig) ApplyDefaults() {
	if c.SwarmTickInterval <= 0 {
		c.SwarmTickInterval = Duration(500 * time.Millisecond)
	}
	if c.IoTTickInterval <= 0 {
		c.IoTTickInterval = Duration(2 * time.Second)
	}
	if c.SwarmCollectTimeout <= 0 {
		c.SwarmCollectTimeout = Duration(400 * time.Millisecond)
	}
	if c.IoTCollectTimeout <= 0 {
		c.IoTCollectTimeout = Duration(1500 * time.Millisecond)
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = Duration(5 * time.Second)
	}
	if c.PublishQueue <= 0 {
		c.PublishQueue = 256
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = 1000
	}
	if c.BaselineMinSamples <= 0 {
		c.BaselineMinSamples = 20
	}
	if c.StdDevFloor <= 0 {
		c.StdDevFloor = 0.1
	}
	if c.Confidence <= 0 {
		c.Confidence = 0.88
	}
	if c.EntropyThreshold <= 0 {
		c.EntropyThreshold = 3.0
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = 4.0
	}
	if c.TopologyThreshold <= 0 {
		c.TopologyThreshold = 3.0
	}
	if c.SybilWindow <= 0 {
		c.SybilWindow = 9
	}
	if c.SybilIncrease <= 0 {
		c.SybilIncrease = 0.30
	}
	if c.BotnetCorrelation <= 0 {
		c.BotnetCorrelation = 0.85
	}
	if c.BotnetWindow <= 0 {
		c.BotnetWindow = 20
	}
}

// GreptimeConfig points the security event sink at a GreptimeDB instance.
type GreptimeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// RegistryConfig selects where security events are persisted.
type RegistryConfig struct {
	MemoryCapacity int            `yaml:"memory_capacity"`
	Greptime       GreptimeConfig `yaml:"greptime"`
}

// NATSConfig points the event bus at a NATS server.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// BusConfig selects downstream event transports. All enabled transports
// receive every detection.
type BusConfig struct {
	NATS      NATSConfig `yaml:"nats"`
	LogEvents bool       `yaml:"log_events"`
	File      string     `yaml:"file"`
}

// AdminConfig controls the JSON statistics endpoint.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SwarmConfig describes one simulated robot swarm registered at startup.
type SwarmConfig struct {
	ID          string  `yaml:"id"`
	Model       string  `yaml:"model"`
	Robots      int     `yaml:"robots"`
	CommRangeM  float64 `yaml:"comm_range_m"`
	Attack      string  `yaml:"attack"`
	AttackAfter int     `yaml:"attack_after_ticks"`
}

// SensorGroup describes a batch of same-typed sensors.
type SensorGroup struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// NetworkConfig describes one simulated IoT network registered at startup.
type NetworkConfig struct {
	ID          string        `yaml:"id"`
	Sensors     []SensorGroup `yaml:"sensors"`
	Attack      string        `yaml:"attack"`
	AttackAfter int           `yaml:"attack_after_ticks"`
}

// Config is the root configuration.
type Config struct {
	ClusterID string          `yaml:"cluster_id"`
	LogLevel  string          `yaml:"log_level"`
	Seed      int64           `yaml:"seed"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Registry  RegistryConfig  `yaml:"registry"`
	Bus       BusConfig       `yaml:"event_bus"`
	Admin     AdminConfig     `yaml:"admin"`
	Swarms    []SwarmConfig   `yaml:"swarms"`
	Networks  []NetworkConfig `yaml:"iot_networks"`
}

// ApplyDefaults fills zero fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.ClusterID == "" {
		c.ClusterID = "swarmwatch-local"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Monitor.ApplyDefaults()
	if c.Registry.MemoryCapacity <= 0 {
		c.Registry.MemoryCapacity = 1000
	}
	if c.Registry.Greptime.Host == "" {
		c.Registry.Greptime.Host = "127.0.0.1"
	}
	if c.Registry.Greptime.Port <= 0 {
		c.Registry.Greptime.Port = 4001
	}
	if c.Registry.Greptime.Database == "" {
		c.Registry.Greptime.Database = "public"
	}
	if c.Registry.Greptime.Table == "" {
		c.Registry.Greptime.Table = "security_events"
	}
	if c.Bus.NATS.URL == "" {
		c.Bus.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.Bus.NATS.SubjectPrefix == "" {
		c.Bus.NATS.SubjectPrefix = "swarmwatch"
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8080"
	}
}

// Validate rejects configurations the monitor cannot run with.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, sw := range c.Swarms {
		if sw.ID == "" {
			return fmt.Errorf("swarm with empty id")
		}
		if seen[sw.ID] {
			return fmt.Errorf("duplicate swarm id %q", sw.ID)
		}
		seen[sw.ID] = true
		if sw.Robots <= 0 {
			return fmt.Errorf("swarm %q needs at least one robot", sw.ID)
		}
	}
	for _, nw := range c.Networks {
		if nw.ID == "" {
			return fmt.Errorf("IoT network with empty id")
		}
		if seen[nw.ID] {
			return fmt.Errorf("duplicate entity id %q", nw.ID)
		}
		seen[nw.ID] = true
		if len(nw.Sensors) == 0 {
			return fmt.Errorf("IoT network %q has no sensors", nw.ID)
		}
	}
	if c.Monitor.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range (0,1]", c.Monitor.Confidence)
	}
	return nil
}

// Load reads YAML config, validates it against a CUE schema when a schema
// path is given, and applies defaults.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCUE(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
