package conn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Umpriel/atlas/internal/atlaserr"
)

func TestLocalCommandCapturesStdout(t *testing.T) {
	c := Local()
	out, err := c.Command(context.Background(), Command{
		Executable: "echo",
		Args:       []string{"hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestLocalCommandNonZeroExitIsExternalCommandFailure(t *testing.T) {
	c := Local()
	_, err := c.Command(context.Background(), Command{
		Executable: "sh",
		Args:       []string{"-c", "echo boom >&2; exit 3"},
	})
	require.Error(t, err)
	assert.True(t, atlaserr.Is(err, atlaserr.ExternalCommandFailure))
	assert.Contains(t, err.Error(), "boom")
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "hello", stripANSI("\x1b[31mhello\x1b[0m"))
}
