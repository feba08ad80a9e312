package main

import (
	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/daemon"
	"github.com/Umpriel/atlas/internal/lindex"
)

var longestLinesIndexCmd = &cobra.Command{
	Use:   "longest-lines-index",
	Short: "Compile the longest-lines COG index manifest for the current run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := daemon.Open(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		return lindex.Compile(ctx, d.TileJobs, conn.Local())
	},
}
