package overview

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteGridedLittleEndianLayout(t *testing.T) {
	var buf bytes.Buffer
	records := []Grided{
		{Lon: 1.5, Lat: -2.5, Distance: 42},
	}
	require.NoError(t, WriteGrided(&buf, records))
	require.Equal(t, recordSize, buf.Len())

	data := buf.Bytes()
	lonBits := binary.LittleEndian.Uint32(data[0:4])
	latBits := binary.LittleEndian.Uint32(data[4:8])
	distance := binary.LittleEndian.Uint32(data[8:12])

	require.Equal(t, float32bits(1.5), lonBits)
	require.Equal(t, float32bits(-2.5), latBits)
	require.EqualValues(t, 42, distance)
}

func TestCentreFromFilename(t *testing.T) {
	pt, err := centreFromFilename("/tmp/longest_lines/12.5_-34.75.tiff")
	require.NoError(t, err)
	require.InDelta(t, 12.5, pt.Lon(), 1e-9)
	require.InDelta(t, -34.75, pt.Lat(), 1e-9)
}

func TestCentreFromFilenameRejectsMalformedName(t *testing.T) {
	_, err := centreFromFilename("/tmp/longest_lines/not-a-coordinate.tiff")
	require.Error(t, err)
}
