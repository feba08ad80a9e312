package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestToMetersToDegreesRoundtrip(t *testing.T) {
	base := orb.Point{-71.0589, 42.3601} // Boston
	p := NewProjector(base)

	target := orb.Point{-71.05, 42.37}
	x, y := p.ToMeters(target)

	back := p.ToDegrees(x, y)
	assert.InDelta(t, target.Lon(), back.Lon(), 1e-6)
	assert.InDelta(t, target.Lat(), back.Lat(), 1e-6)
}

func TestToDegreesAtOriginReturnsBase(t *testing.T) {
	base := orb.Point{10, 20}
	p := NewProjector(base)
	got := p.ToDegrees(0, 0)
	assert.Equal(t, base, got)
}
