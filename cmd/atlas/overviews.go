package main

import (
	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/daemon"
	"github.com/Umpriel/atlas/internal/overview"
	"github.com/Umpriel/atlas/internal/runconfig"
)

var overviewFlags struct {
	tiffDir string
}

var longestLinesOverviewsCmd = &cobra.Command{
	Use:   "longest-lines-overviews",
	Short: "Aggregate completed tiles' longest-lines COGs into a global H3-binned overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := daemon.Open(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		cfg, _, err := runconfig.Current(ctx, d.TileJobs)
		if err != nil {
			return err
		}

		return overview.Run(ctx, cfg, overviewFlags.tiffDir)
	},
}

func init() {
	longestLinesOverviewsCmd.Flags().StringVar(&overviewFlags.tiffDir, "tiff-dir", "", "directory of per-tile longest-lines COGs to aggregate")
	_ = longestLinesOverviewsCmd.MarkFlagRequired("tiff-dir")
}
