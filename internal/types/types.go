// Package types holds the core data model shared across Atlas: tiles, jobs,
// and the configuration that travels with a run from submission through to
// completed tile rows.
package types

import (
	"fmt"
	"net/netip"
	"strconv"
)

// ComputeProvider names the infrastructure a machine was (or will be)
// provisioned on.
type ComputeProvider string

const (
	ProviderLocal        ComputeProvider = "local"
	ProviderDigitalOcean ComputeProvider = "digital_ocean"
	ProviderVultr        ComputeProvider = "vultr"
	ProviderGoogleCloud  ComputeProvider = "google_cloud"
)

// Backend selects the TVS compute kernel a tile job runs against.
type Backend string

const (
	BackendVulkan    Backend = "vulkan"
	BackendVulkanCPU Backend = "vulkan_cpu"
	BackendCPU       Backend = "cpu"
)

// LonLat is a WGS84 coordinate pair, longitude first to match the on-disk
// CSV and filename conventions this module inherited.
type LonLat struct {
	Lon float64
	Lat float64
}

func (c LonLat) String() string {
	return fmt.Sprintf("%s,%s", formatFloat(c.Lon), formatFloat(c.Lat))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Tile is a single viewshed computation unit: a square region of the given
// width (metres) centred on Centre.
type Tile struct {
	Centre LonLat
	Width  float32
}

// CogFilename is the name under which this tile's longest-lines
// cloud-optimized GeoTIFF is stored, e.g. "12.34_56.78.tiff".
func (t Tile) CogFilename() string {
	return fmt.Sprintf("%s_%s.tiff", formatFloat(t.Centre.Lon), formatFloat(t.Centre.Lat))
}

// CanonicalFilename is the name of the stitched binary-terrain source file
// for this tile, e.g. "12.34,56.78.bt".
func (t Tile) CanonicalFilename() string {
	return fmt.Sprintf("%s.bt", t.Centre)
}

// AtlasConfig is the full set of parameters for a run. It is embedded
// verbatim into every job pushed for that run so a restarted daemon can
// resume without re-reading any external configuration.
type AtlasConfig struct {
	RunID            string
	Master           string
	Centre           LonLat
	Skip             int
	Amount           int
	TVSExecutable    string
	LongestLinesCOGs string
	Provider         ComputeProvider
	Backend          Backend
	EnableCleanup    bool
	CPUKernelThreads int
}

// IsLocalRun reports whether this config describes a local, non-uploading
// run. Local runs skip every S3 upload; the stitched input tile is still
// downloaded from S3, and the run-ID conflict check applies as for any run.
func (c AtlasConfig) IsLocalRun() bool {
	return c.RunID == "local"
}

// TileJob is a single unit of queued viewshed work.
type TileJob struct {
	Config AtlasConfig
	Tile   Tile
}

// NewMachineJob requests that a worker machine be provisioned (or, for the
// Local provider, simply recognised) and handed a tile-worker loop.
type NewMachineJob struct {
	User     string
	IP       netip.Addr
	Provider ComputeProvider
}

// WorkerName identifies the per-machine tile-worker loop this job starts,
// used as the busy-set key so a machine is never double-assigned a worker.
func (j NewMachineJob) WorkerName() string {
	return fmt.Sprintf("tiler-%s-%s", j.Provider, j.IP)
}
