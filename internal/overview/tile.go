// Package overview implements the global-overview aggregator (C7): it
// reads every tile's longest-lines raster, reprojects each sample back to
// WGS84, bins samples into H3 resolution-4 cells keeping the maximum
// distance per cell, and emits the result as a flat binary file.
package overview

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/geo"
	"github.com/Umpriel/atlas/internal/packedline"
)

// overviewResolution is the H3 grid resolution the global overview bins
// into: resolution 4 cells (~1,770 km2 each, 288,122 cells worldwide)
// are coarse enough to make a single binary file practical while still
// resolving regional terrain-visibility structure.
const overviewResolution = 4

// longestLine is one raster sample reprojected to WGS84 and kept only if
// it is the longest seen so far in its H3 cell.
type longestLine struct {
	lonLat orb.Point
	packed packedline.Line
}

// centreFromFilename parses a tile's centre coordinate out of its
// "{lon}_{lat}.tiff" filename stem, matching Tile.CogFilename.
func centreFromFilename(path string) (orb.Point, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.SplitN(stem, "_", 2)
	if len(parts) != 2 {
		return orb.Point{}, atlaserr.New(atlaserr.DataFormatFailure, "cannot parse tile centre from filename: "+path)
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return orb.Point{}, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse longitude from filename", err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return orb.Point{}, atlaserr.Wrap(atlaserr.DataFormatFailure, "parse latitude from filename", err)
	}
	return orb.Point{lon, lat}, nil
}

// processTile reads path's band 1 as a width x width float32 buffer,
// reprojects each sample back to WGS84 around the tile's centre, and
// returns the per-H3-cell longest line seen in this tile alone. Folding
// across tiles happens in the caller.
func processTile(path string) (map[h3.Cell]longestLine, error) {
	centre, err := centreFromFilename(path)
	if err != nil {
		return nil, err
	}

	ds, err := godal.Open(path)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "open raster "+path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, atlaserr.New(atlaserr.DataFormatFailure, "raster has no bands: "+path)
	}
	band := bands[0]
	structure := band.Structure()
	width := structure.SizeX
	height := structure.SizeY

	samples := make([]float32, width*height)
	if err := band.Read(0, 0, samples, width, height); err != nil {
		return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "read raster band "+path, err)
	}

	projector := geo.NewProjector(centre)
	local := make(map[h3.Cell]longestLine)

	flipper := float64(height - 1)
	offset := float64(width) / 2.0

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			packed := packedline.Line(samples[row*width+col])
			if packed.Distance() == 0 {
				continue
			}

			// Raster rows run top-to-bottom; metres-north increases
			// bottom-to-top, hence the flip on the row index.
			x := (float64(col) - offset) * 100.0
			y := (flipper - float64(row) - offset) * 100.0
			point := projector.ToDegrees(x, y)

			cell := h3.LatLngToCell(h3.LatLng{Lat: point.Lat(), Lng: point.Lon()}, overviewResolution)

			existing, ok := local[cell]
			if !ok || packed.Distance() > existing.packed.Distance() {
				local[cell] = longestLine{lonLat: point, packed: packed}
			}
		}
	}

	return local, nil
}

func findTiffs(root string) ([]string, error) {
	var out []string
	matches, err := filepath.Glob(filepath.Join(root, "*.tiff"))
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "glob tiff files", err)
	}
	out = append(out, matches...)
	return out, nil
}

func cellDisplay(c h3.Cell) string {
	return fmt.Sprintf("%x", uint64(c))
}
