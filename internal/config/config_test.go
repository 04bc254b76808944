package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxlab/calyx/internal/engine"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "calyx.db", cfg.StorePath)
	assert.Equal(t, engine.DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, engine.DefaultMaxSteps, cfg.MaxSteps)
	assert.True(t, cfg.ReplyRequestsAllowed())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
store_path: /var/lib/calyx/state.db
max_depth: 16
max_steps: 200
allow_reply_requests: false
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/calyx/state.db", cfg.StorePath)
	assert.Equal(t, 16, cfg.MaxDepth)
	assert.Equal(t, 200, cfg.MaxSteps)
	assert.False(t, cfg.ReplyRequestsAllowed())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_PartialOverride(t *testing.T) {
	cfg, err := Parse([]byte("max_depth: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MaxDepth)
	assert.Equal(t, engine.DefaultMaxSteps, cfg.MaxSteps)
	assert.True(t, cfg.ReplyRequestsAllowed(), "absent allow_reply_requests defaults to true")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "bad yaml", src: "max_depth: [", wantErr: "parse config"},
		{name: "zero depth", src: "max_depth: 0", wantErr: "max_depth"},
		{name: "negative steps", src: "max_steps: -1", wantErr: "max_steps"},
		{name: "empty store path", src: `store_path: ""`, wantErr: "store_path"},
		{name: "bad log level", src: "log_level: loud", wantErr: "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calyx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.EngineOptions(), 3)
}
