package main

import (
	"github.com/spf13/cobra"

	"swarmwatch/internal/config"
	"swarmwatch/internal/eventbus"
	"swarmwatch/internal/logging"
)

var (
	rebroadcastInput      string
	rebroadcastSpeed      float64
	rebroadcastConfigPath string
	rebroadcastSchemaPath string
	rebroadcastLogOnly    bool
)

var rebroadcastCmd = &cobra.Command{
	Use:   "rebroadcast",
	Short: "Re-publish a recorded security event log",
	Long:  "rebroadcast feeds threats from a JSONL event log back to the configured transports, useful for re-driving downstream consumers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rebroadcastConfigPath, rebroadcastSchemaPath)
		if err != nil {
			return err
		}
		logger := logging.NewWithLevel(cfg.LogLevel)

		// The file transport is excluded here; replaying into the log
		// being read would loop.
		var buses []eventbus.Bus
		if cfg.Bus.NATS.Enabled && !rebroadcastLogOnly {
			nb, err := eventbus.NewNATS(cfg.Bus.NATS)
			if err != nil {
				return err
			}
			defer nb.Close()
			buses = append(buses, nb)
		}
		if len(buses) == 0 || cfg.Bus.LogEvents {
			buses = append(buses, eventbus.NewLog(logger))
		}

		n, err := eventbus.ReplayFile(cmd.Context(), rebroadcastInput, eventbus.NewMulti(buses...), rebroadcastSpeed)
		if err != nil {
			return err
		}
		logger.Info("rebroadcast finished", "events", n)
		return nil
	},
}

func init() {
	rebroadcastCmd.Flags().StringVar(&rebroadcastInput, "input", "", "Path to security event log (JSONL)")
	rebroadcastCmd.Flags().Float64Var(&rebroadcastSpeed, "speed", 1.0, "Playback speed multiplier, 0 for no pacing")
	rebroadcastCmd.Flags().StringVar(&rebroadcastConfigPath, "config", "config/monitor.yaml", "Path to monitor configuration YAML")
	rebroadcastCmd.Flags().StringVar(&rebroadcastSchemaPath, "schema", "schemas/monitor.cue", "Path to CUE schema file")
	rebroadcastCmd.Flags().BoolVar(&rebroadcastLogOnly, "log-only", false, "Publish replayed events to the log only")
	rebroadcastCmd.MarkFlagRequired("input")
}
