package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"swarmwatch/internal/admin"
	"swarmwatch/internal/config"
	"swarmwatch/internal/logging"
	"swarmwatch/internal/monitor"
	"swarmwatch/internal/stats"
	"swarmwatch/internal/telemetry"
)

var (
	runConfigPath string
	runSchemaPath string
	runLogOnly    bool
	runRecordPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the security monitor against the configured fleets",
	Long:  "run registers the configured swarms and IoT networks, starts their monitoring loops, and serves the admin API until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}
		if env := os.Getenv("CLUSTER_ID"); env != "" {
			cfg.ClusterID = env
		}

		logger := logging.NewWithLevel(cfg.LogLevel)

		reg, threatLog, err := newRegistries(cfg, runLogOnly)
		if err != nil {
			return err
		}
		bus, busCleanup, err := newBuses(cfg, runLogOnly, logger)
		if err != nil {
			return err
		}
		defer busCleanup()

		sim := telemetry.NewSimCollector(cfg.Seed)
		var collector monitor.Collector = sim
		var recordFile *os.File
		if runRecordPath != "" {
			recordFile, err = os.Create(runRecordPath)
			if err != nil {
				return err
			}
			defer recordFile.Close()
			collector = monitor.NewRecordingCollector(collector, recordFile, logger)
			logger.Info("recording telemetry", "path", runRecordPath)
		}
		m := monitor.New(cfg.Monitor, collector, reg, bus, stats.NewAggregator(), logger)

		if err := registerEntities(cfg, sim, m); err != nil {
			m.Close()
			return err
		}
		logger.Info("monitoring started",
			"cluster_id", cfg.ClusterID,
			"swarms", len(cfg.Swarms),
			"iot_networks", len(cfg.Networks),
		)

		var srv *admin.Server
		if cfg.Admin.Enabled {
			srv = admin.NewServer(m, threatLog)
			go func() {
				logger.Info("admin API listening", "addr", cfg.Admin.Addr)
				if err := srv.Start(cfg.Admin.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("admin server failed", "err", err)
				}
			}()
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		m.Close()
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}
		logger.Info("monitor stopped")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/monitor.yaml", "Path to monitor configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/monitor.cue", "Path to CUE schema file")
	runCmd.Flags().BoolVar(&runLogOnly, "log-only", false, "Publish events to the log only, skipping GreptimeDB and NATS")
	runCmd.Flags().StringVar(&runRecordPath, "record", "", "Record collected telemetry to this JSONL file for later replay")
}
