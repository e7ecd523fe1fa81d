package main

import (
	"github.com/spf13/cobra"

	"swarmwatch/internal/config"
	"swarmwatch/internal/logging"
	"swarmwatch/internal/monitor"
)

var (
	replayInput      string
	replaySpeed      float64
	replayConfigPath string
	replaySchemaPath string
	replayLogOnly    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-analyze a recorded telemetry log",
	Long:  "replay feeds a telemetry log captured with 'run --record' back through the scoring and detection pipeline, publishing any detections to the configured sinks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(replayConfigPath, replaySchemaPath)
		if err != nil {
			return err
		}
		logger := logging.NewWithLevel(cfg.LogLevel)

		reg, _, err := newRegistries(cfg, replayLogOnly)
		if err != nil {
			return err
		}
		bus, busCleanup, err := newBuses(cfg, replayLogOnly, logger)
		if err != nil {
			return err
		}
		defer busCleanup()

		res, err := monitor.ReplayLogFile(cmd.Context(), cfg.Monitor, replayInput, reg, bus, logger, replaySpeed)
		if err != nil {
			return err
		}
		logger.Info("replay finished",
			"entries", res.Entries,
			"threats", res.Stats.ThreatsDetected,
			"dropped", res.Stats.DroppedDetections,
		)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log (JSONL)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier, 0 for no pacing")
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "config/monitor.yaml", "Path to monitor configuration YAML")
	replayCmd.Flags().StringVar(&replaySchemaPath, "schema", "schemas/monitor.cue", "Path to CUE schema file")
	replayCmd.Flags().BoolVar(&replayLogOnly, "log-only", false, "Publish detections to the log only, skipping GreptimeDB and NATS")
	replayCmd.MarkFlagRequired("input")
}
