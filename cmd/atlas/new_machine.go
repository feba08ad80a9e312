package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Umpriel/atlas/internal/daemon"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/machines"
	"github.com/Umpriel/atlas/internal/types"
)

var newMachineFlags struct {
	provider string
	sshKeyID string
}

var newMachineCmd = &cobra.Command{
	Use:   "new-machine",
	Short: "Provision a worker machine and run its tile-worker loop until the queue drains or it is stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		provider, err := machines.NewProvider(types.ComputeProvider(newMachineFlags.provider))
		if err != nil {
			return err
		}

		user, ip, err := provider.Create(ctx, newMachineFlags.sshKeyID)
		if err != nil {
			return err
		}
		log.Info("machine provisioned at " + ip.String())

		job := types.NewMachineJob{User: user, IP: ip, Provider: provider.ComputeProvider()}

		d, err := daemon.Open(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		jobID, err := d.MachineJobs.Push(ctx, job)
		if err != nil {
			return err
		}

		return machines.HandleNewMachine(ctx, d.MachineJobs, d.TileJobs, d.Registry, d.Busy, jobID, job)
	},
}

func init() {
	f := newMachineCmd.Flags()
	f.StringVar(&newMachineFlags.provider, "provider", string(types.ProviderLocal), "compute provider: local, digital_ocean, vultr, google_cloud")
	f.StringVar(&newMachineFlags.sshKeyID, "ssh-key-id", "", "provider-specific SSH key identifier to install on the new machine")
}
