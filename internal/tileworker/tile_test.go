package tileworker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Umpriel/atlas/internal/types"
)

func TestJobDirectoryUsesJobIDForRemoteRuns(t *testing.T) {
	cfg := types.AtlasConfig{RunID: "2026-07-31"}
	dir := jobDirectory("tiler-local-127.0.0.1", "abc123", cfg)
	assert.Equal(t, "atlas-work/tiler-local-127.0.0.1/abc123", dir)
}

func TestJobDirectoryUsesLocalSuffixForLocalRuns(t *testing.T) {
	cfg := types.AtlasConfig{RunID: "local"}
	dir := jobDirectory("tiler-local-127.0.0.1", "abc123", cfg)
	assert.Equal(t, "atlas-work/tiler-local-127.0.0.1/local", dir)
}
