package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/daemon"
	"github.com/Umpriel/atlas/internal/runconfig"
)

var currentRunConfigCmd = &cobra.Command{
	Use:   "current-run-config",
	Short: "Print the AtlasConfig of the most recently completed tile job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := daemon.Open(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		cfg, ok, err := runconfig.Current(ctx, d.TileJobs)
		if err != nil {
			return err
		}
		if !ok {
			return atlaserr.New(atlaserr.JobNotFound, "no completed tile jobs on record")
		}

		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
