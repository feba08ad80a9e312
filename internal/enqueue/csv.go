// Package enqueue implements the job submitter (C10): loading the master
// tile catalog, walking it nearest-neighbour-first from a seed
// coordinate, and pushing a TileJob per tile.
package enqueue

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/types"
)

// loadMasterTiles parses path as a header-less CSV of "lon,lat,width"
// rows, one tile per line.
func loadMasterTiles(path string) ([]types.Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "open master tile file", err)
	}
	defer f.Close()

	var tiles []types.Tile
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, atlaserr.New(atlaserr.DataFormatFailure, "malformed master tile row: "+line)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse lon in row: "+line, err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse lat in row: "+line, err)
		}
		width, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse width in row: "+line, err)
		}
		tiles = append(tiles, types.Tile{Centre: types.LonLat{Lon: lon, Lat: lat}, Width: float32(width)})
	}
	if err := scanner.Err(); err != nil {
		return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "scan master tile file", err)
	}
	return tiles, nil
}
