package tileworker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/metrics"
	"github.com/Umpriel/atlas/internal/types"
)

// demScale is the --scale value passed to the TVS kernel: the DEM grid's
// spacing of 100 metres per sample, the same spacing the overview
// aggregator uses to turn raster samples back into metres.
const demScale = 100.0

const workingDirRoot = "atlas-work"

func jobDirectory(workerName, jobID string, cfg types.AtlasConfig) string {
	suffix := jobID
	if cfg.IsLocalRun() {
		suffix = "local"
	}
	return fmt.Sprintf("%s/%s/%s", workingDirRoot, workerName, suffix)
}

// processTile runs a single tile job's stage pipeline to completion:
// directory setup, download, (gated) compute, asset preparation, and
// upload, each in strict order. Any stage error aborts the remaining
// stages and is returned to the caller, which marks the job failed and
// stops the worker loop.
func processTile(ctx context.Context, workerName, jobID string, job types.TileJob, state *State) error {
	dir := jobDirectory(workerName, jobID, job.Config)
	logger := log.WithTile(job.Tile.CogFilename())

	if err := ensureDirectories(ctx, state.Connection, dir); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	t := metrics.NewTimer()
	btFile, err := downloadBTFile(ctx, state.Connection, dir, job.Tile)
	t.ObserveDurationVec(metrics.TileStageDuration, "download")
	if err != nil {
		return fmt.Errorf("download bt file: %w", err)
	}

	gateWait := metrics.NewTimer()
	state.ComputeGate.Lock()
	gateWait.ObserveDuration(metrics.ComputeGateWaitSeconds)
	computeTimer := metrics.NewTimer()
	computeErr := compute(ctx, state.Connection, dir, btFile, job)
	state.ComputeGate.Unlock()
	computeTimer.ObserveDurationVec(metrics.TileStageDuration, "compute")
	if computeErr != nil {
		return fmt.Errorf("compute: %w", computeErr)
	}

	assetsTimer := metrics.NewTimer()
	err = assets(ctx, state.Connection, dir, job.Tile)
	assetsTimer.ObserveDurationVec(metrics.TileStageDuration, "assets")
	if err != nil {
		return fmt.Errorf("prepare assets: %w", err)
	}

	if !job.Config.IsLocalRun() {
		uploadTimer := metrics.NewTimer()
		err = upload(ctx, state.Connection, dir, job)
		uploadTimer.ObserveDurationVec(metrics.TileStageDuration, "upload")
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	if job.Config.EnableCleanup {
		if _, err := state.Connection.Command(ctx, conn.Command{
			Executable: "rm",
			Args:       []string{"-r", dir},
		}); err != nil {
			logger.Warn().Err(err).Msg("cleanup failed, leaving job directory behind")
		}
	}

	logger.Info().Msg("tile job completed")
	return nil
}

func ensureDirectories(ctx context.Context, c *conn.Connection, dir string) error {
	_, err := c.Command(ctx, conn.Command{
		Executable: "mkdir",
		Args:       []string{"-p", dir + "/archive", dir + "/longest_lines"},
	})
	return err
}

func downloadBTFile(ctx context.Context, c *conn.Connection, dir string, tile types.Tile) (string, error) {
	file := tile.CanonicalFilename()
	local := dir + "/" + file
	remote := "s3://viewview/stitched/" + file
	if err := c.SyncFileFromS3(ctx, remote, local); err != nil {
		return "", err
	}
	return local, nil
}

// computeBackendName maps a Backend to the enum spelling the TVS executable
// expects on its --backend flag.
func computeBackendName(b types.Backend) string {
	switch b {
	case types.BackendVulkanCPU:
		return "vulkan-cpu"
	default:
		return string(b)
	}
}

func compute(ctx context.Context, c *conn.Connection, dir, btFile string, job types.TileJob) error {
	args := []string{
		"compute", btFile,
		"--output-dir", dir,
		"--scale", strconv.FormatFloat(demScale, 'f', -1, 64),
		"--disable-image-render",
		"--backend", computeBackendName(job.Config.Backend),
		"--process", "total-surfaces,longest-lines",
	}
	if job.Config.CPUKernelThreads > 0 {
		args = append(args, "--thread-count", strconv.Itoa(job.Config.CPUKernelThreads))
	}

	_, err := c.Command(ctx, conn.Command{
		Executable: job.Config.TVSExecutable,
		Args:       args,
		Env: []conn.EnvVar{
			{Key: "RUST_BACKTRACE", Value: "1"},
			{Key: "RUST_LOG", Value: "off,total_viewsheds=trace"},
		},
		CurrentDir: dir,
	})
	return err
}

// assets runs ctl.sh's prepare_for_cloud twice: once for the total-surfaces
// raster, once for the longest-lines raster, each producing the tile's
// cloud-optimized GeoTIFF under its own output location.
func assets(ctx context.Context, c *conn.Connection, dir string, tile types.Tile) error {
	cog := tile.CogFilename()
	inputs := []string{"total_surfaces.bt", "longest_lines.bt"}
	for _, input := range inputs {
		if _, err := c.Command(ctx, conn.Command{
			Executable: "./ctl.sh",
			Args:       []string{"prepare_for_cloud", input, cog},
			Env:        []conn.EnvVar{{Key: "OUTPUT_DIR", Value: dir}},
		}); err != nil {
			return err
		}
	}
	return nil
}

func upload(ctx context.Context, c *conn.Connection, dir string, job types.TileJob) error {
	cog := job.Tile.CogFilename()

	rawHeatmap := dir + "/tmp/plain.tif"
	rawDest := fmt.Sprintf("s3://viewview/runs/%s/raw/%s", job.Config.RunID, cog)
	if err := c.SyncFileToS3(ctx, rawHeatmap, rawDest); err != nil {
		return err
	}

	longestLinesCOG := dir + "/longest_lines/" + cog
	cogDest := fmt.Sprintf("s3://viewview/runs/%s/longest_lines_cogs/%s", job.Config.RunID, cog)
	return c.SyncFileToS3(ctx, longestLinesCOG, cogDest)
}
