// Package lindex compiles the longest-lines COG index: a manifest line
// per completed tile of the current run, naming its cloud-optimized
// GeoTIFF and width in metres, so downstream tiling tools know what to
// fetch without listing the S3 bucket.
package lindex

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/runconfig"
	"github.com/Umpriel/atlas/internal/store"
	"github.com/Umpriel/atlas/internal/types"
)

// Compile writes {cfg.LongestLinesCOGs}/index.txt for the current run and
// uploads it to S3 unless the run is local.
func Compile(ctx context.Context, tileJobs *store.Store[types.TileJob], c *conn.Connection) error {
	cfg, ok, err := runconfig.Current(ctx, tileJobs)
	if err != nil {
		return err
	}
	if !ok {
		return atlaserr.New(atlaserr.JobNotFound, "no completed tile jobs to compile an index from")
	}

	tiles, err := runconfig.CompletedTiles(ctx, tileJobs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.LongestLinesCOGs, 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "create longest-lines-cogs directory", err)
	}
	indexPath := filepath.Join(cfg.LongestLinesCOGs, "index.txt")
	f, err := os.Create(indexPath)
	if err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "create index file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, tile := range tiles {
		if _, err := fmt.Fprintf(w, "%s %g\n", tile.CogFilename(), float64(tile.Width)); err != nil {
			return atlaserr.Wrap(atlaserr.QueueFailure, "write index line", err)
		}
	}
	if err := w.Flush(); err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "flush index file", err)
	}

	log.Info(fmt.Sprintf("wrote longest-lines index with %d tiles to %s", len(tiles), indexPath))

	if cfg.IsLocalRun() {
		return nil
	}

	dest := fmt.Sprintf("s3://viewview/runs/%s/longest_lines_cogs/index.txt", cfg.RunID)
	return c.SyncFileToS3(ctx, indexPath, dest)
}
