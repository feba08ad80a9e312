package overview

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

func float32bits(f float32) uint32 { return math.Float32bits(f) }

// Grided is one binned record of the global overview: a hex-cell
// representative point and the longest line-of-sight distance seen
// anywhere in that cell, in metres.
type Grided struct {
	Lon      float32
	Lat      float32
	Distance uint32
}

// recordSize is the fixed on-disk size of one Grided record: two
// float32s and one uint32, little-endian.
const recordSize = 12

// WriteGrided writes records to w as fixed 12-byte little-endian records
// (f32 lon, f32 lat, u32 distance). The original left this little-endian
// vs. host-endian choice implicit by relying on bytemuck's native-order
// cast; this module fixes it explicitly to little-endian so the output
// format is stable across build hosts.
func WriteGrided(w io.Writer, records []Grided) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, recordSize)
	for _, r := range records {
		binary.LittleEndian.PutUint32(buf[0:4], float32bits(r.Lon))
		binary.LittleEndian.PutUint32(buf[4:8], float32bits(r.Lat))
		binary.LittleEndian.PutUint32(buf[8:12], r.Distance)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
