package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas drives distributed viewshed computation over geographic tiles",
	Long: `Atlas enqueues and executes viewshed ("longest line of sight")
computation across a grid of geographic tiles, provisioning worker
machines as needed and aggregating per-tile results into a global
overview.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(newMachineCmd)
	rootCmd.AddCommand(longestLinesOverviewsCmd)
	rootCmd.AddCommand(longestLinesIndexCmd)
	rootCmd.AddCommand(currentRunConfigCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOutput,
	})
}
