package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/tagcache/pkg/cache"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	target, err := cfg.DefaultTarget()
	require.NoError(t, err)
	assert.Equal(t, cache.NewTarget(cache.Halo3Retail, cache.PlatformOriginal), target)
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
	assert.Equal(t, runtime.NumCPU(), cfg.Workers())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagcache.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[target]
version = "haloreach"
platform = "mcc"

[batch]
workers = 3

[index]
path = "/var/lib/tagcache/tags.db"

[metrics]
file = "tagcache.prom"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	target, err := cfg.DefaultTarget()
	require.NoError(t, err)
	assert.Equal(t, cache.NewTarget(cache.HaloReach, cache.PlatformMCC), target)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.Equal(t, 3, cfg.Workers())
	assert.Equal(t, "/var/lib/tagcache/tags.db", cfg.Index.Path)
	assert.Equal(t, "tagcache.prom", cfg.Metrics.File)
	// Unset sections keep their defaults.
	assert.Equal(t, Default().Resource, cfg.Resource)
	assert.Equal(t, Default().Archive, cfg.Archive)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Syntax", `log_level = `},
		{"Level", `log_level = "loud"`},
		{"Version", "[target]\nversion = \"halo5\""},
		{"Platform", "[target]\nplatform = \"dreamcast\""},
		{"Workers", "[batch]\nworkers = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(`log_level = "loud"`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
