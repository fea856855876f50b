package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x86scope.log")
	Setup(path, true)
	require.True(t, Initialized())

	slog.Debug("decoded", "addr", "0x401000")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "decoded")
	assert.Contains(t, string(data), "addr=0x401000")

	// Later calls keep the first configuration.
	Setup("", false)
	assert.True(t, Initialized())
}

func TestRecoverPanic(t *testing.T) {
	cleaned := false
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
		panic("boom")
	}()
	assert.True(t, cleaned)
}
