package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/daemon"
	"github.com/Umpriel/atlas/internal/enqueue"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/types"
)

var runFlags struct {
	runID            string
	master           string
	centreLon        float64
	centreLat        float64
	skip             int
	amount           int
	tvsExecutable    string
	longestLinesCOGs string
	provider         string
	backend          string
	enableCleanup    bool
	cpuKernelThreads int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a run: enqueue tile jobs starting from a centre coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := types.AtlasConfig{
			RunID:            runFlags.runID,
			Master:           runFlags.master,
			Centre:           types.LonLat{Lon: runFlags.centreLon, Lat: runFlags.centreLat},
			Skip:             runFlags.skip,
			Amount:           runFlags.amount,
			TVSExecutable:    runFlags.tvsExecutable,
			LongestLinesCOGs: runFlags.longestLinesCOGs,
			Provider:         types.ComputeProvider(runFlags.provider),
			Backend:          types.Backend(runFlags.backend),
			EnableCleanup:    runFlags.enableCleanup,
			CPUKernelThreads: runFlags.cpuKernelThreads,
		}

		d, err := daemon.Open(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := enqueue.Run(ctx, cfg, d.TileJobs, d.MachineJobs, d.Registry, d.Busy); err != nil {
			return err
		}

		if cfg.Provider != types.ProviderLocal {
			log.Info("run submitted; provision worker machines with `atlas new-machine` or run `atlas daemon`")
			return nil
		}

		log.Info("local run submitted, local tile worker started; press ctrl-c to stop")
		<-ctx.Done()
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.runID, "run-id", "local", "identifier for this run; \"local\" enables local-only mode")
	f.StringVar(&runFlags.master, "master", "", "path to the master tile catalog CSV (lon,lat,width)")
	f.Float64Var(&runFlags.centreLon, "centre-lon", 0, "longitude to start the nearest-first tile walk from")
	f.Float64Var(&runFlags.centreLat, "centre-lat", 0, "latitude to start the nearest-first tile walk from")
	f.IntVar(&runFlags.skip, "skip", 0, "number of nearest tiles to skip before submitting")
	f.IntVar(&runFlags.amount, "amount", 0, "maximum number of tiles to submit (0 = all remaining)")
	f.StringVar(&runFlags.tvsExecutable, "tvs-executable", "", "path to the viewshed compute executable")
	f.StringVar(&runFlags.longestLinesCOGs, "longest-lines-cogs", "", "directory longest-lines COGs are written to")
	f.StringVar(&runFlags.provider, "provider", string(types.ProviderLocal), "compute provider: local, digital_ocean, vultr, google_cloud")
	f.StringVar(&runFlags.backend, "backend", string(types.BackendCPU), "TVS compute backend: vulkan, vulkan_cpu, cpu")
	f.BoolVar(&runFlags.enableCleanup, "enable-cleanup", true, "remove a tile's job directory after the tile job succeeds")
	f.IntVar(&runFlags.cpuKernelThreads, "cpu-kernel-threads", 0, "thread count passed to the CPU compute backend (0 = default)")
	_ = f.MarkRequired("master")
	_ = f.MarkRequired("tvs-executable")
	_ = f.MarkRequired("longest-lines-cogs")
}
