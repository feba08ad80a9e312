package packedline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackRoundtrip(t *testing.T) {
	l := Pack(123456, 512)
	assert.EqualValues(t, 123456, l.Distance())
	assert.EqualValues(t, 512, l.Angle())
}

func TestPackClampsOutOfRangeValues(t *testing.T) {
	l := Pack(maxDistance+1000, maxAngle+1000)
	assert.EqualValues(t, maxDistance, l.Distance())
	assert.EqualValues(t, maxAngle, l.Angle())
}

func TestPackZero(t *testing.T) {
	l := Pack(0, 0)
	assert.EqualValues(t, 0, l.Distance())
	assert.EqualValues(t, 0, l.Angle())
}
