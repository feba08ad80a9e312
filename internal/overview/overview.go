package overview

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/uber/h3-go/v4"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/conn"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/types"
	"github.com/Umpriel/atlas/internal/workpool"
)

const outputPath = "output/longest_lines_grided.bin"

func init() {
	godal.RegisterAll()
}

// Run processes every *.tiff under tiffDir, bins the results globally,
// and writes outputPath. Any worker error is logged and returned as a
// DataFormatFailure before anything is written, so no partial overview is
// ever emitted; the CLI turns that returned error into a non-zero exit.
func Run(ctx context.Context, cfg types.AtlasConfig, tiffDir string) error {
	tiffs, err := findTiffs(tiffDir)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("found %d longest-lines tiffs to aggregate", len(tiffs)))

	list := workpool.NewList(tiffs)

	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}

	global := make(map[h3.Cell]longestLine)
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				path, ok := list.Pop()
				if !ok {
					return
				}
				local, err := processTile(path)
				if err != nil {
					errCh <- err
					return
				}
				mu.Lock()
				foldInto(global, local)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	close(errCh)
	if err, ok := <-errCh; ok {
		log.Logger.Error().Err(err).Msg("overview aggregation worker failed, aborting without writing output")
		return atlaserr.Wrap(atlaserr.DataFormatFailure, "overview aggregation failed", err)
	}

	records := make([]Grided, 0, len(global))
	for _, ll := range global {
		records = append(records, Grided{
			Lon:      float32(ll.lonLat.Lon()),
			Lat:      float32(ll.lonLat.Lat()),
			Distance: ll.packed.Distance(),
		})
	}

	if err := os.MkdirAll("output", 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "create output directory", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "create output file", err)
	}
	defer f.Close()
	if err := WriteGrided(f, records); err != nil {
		return atlaserr.Wrap(atlaserr.DataFormatFailure, "write grided output", err)
	}

	log.Info(fmt.Sprintf("wrote %d binned cells to %s", len(records), outputPath))

	if !cfg.IsLocalRun() {
		dest := "s3://viewview/runs/" + cfg.RunID + "/longest_lines_cogs/longest_lines_grided.bin"
		if err := conn.Local().SyncFileToS3(ctx, outputPath, dest); err != nil {
			return err
		}
	}

	return nil
}

// foldInto merges local into global, keeping the longer line per cell —
// mirroring the original's fold-by-max-distance reduce across a tile
// worker's local map and the shared global one.
func foldInto(global map[h3.Cell]longestLine, local map[h3.Cell]longestLine) {
	for cell, ll := range local {
		existing, ok := global[cell]
		if !ok || ll.packed.Distance() > existing.packed.Distance() {
			global[cell] = ll
		}
	}
}
