package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/daemon"
)

var daemonFlags struct {
	staticDir string
}

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Aliases: []string{"worker"},
	Short:   "Run the Atlas daemon: recover machines and serve the job-inspection web UI until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d, err := daemon.Open(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		return d.Run(ctx, daemonFlags.staticDir)
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonFlags.staticDir, "static-dir", "", "directory to serve the job-inspection frontend from, if built (optional)")
}
