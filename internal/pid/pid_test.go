package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermloop.pid")

	require.NoError(t, pid.Write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Rewriting our own PID is fine.
	require.NoError(t, pid.Write(path))

	require.NoError(t, pid.Remove(path))
	require.NoError(t, pid.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermloop.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermloop.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o600))

	require.NoError(t, pid.Write(path))
}
