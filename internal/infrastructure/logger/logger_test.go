package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.log")
	l, err := New(&Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("tranche approved")
	l.Warn("disbursement rejected", zap.String("school_code", "CES-0456"))
	require.NoError(t, Sync(l))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "tranche approved")
	assert.Contains(t, out, `"msg":"disbursement rejected"`)
	assert.Contains(t, out, `"school_code":"CES-0456"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.log")
	l, err := New(&Config{Level: "chatty", Format: "json", Output: path})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "grants.log")})
	assert.Error(t, err)
}

func TestNew_StandardStreams(t *testing.T) {
	for _, out := range []string{"", "stdout", "STDERR"} {
		l, err := New(&Config{Level: "info", Format: "console", Output: out})
		require.NoError(t, err, out)
		assert.NotNil(t, l)
	}
}
