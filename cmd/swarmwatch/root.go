package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmwatch",
	Short: "Swarm and IoT security monitoring toolkit",
	Long:  "Swarmwatch scores robot-swarm and IoT telemetry for thermodynamic anomalies and raises security events.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(rebroadcastCmd)
}
