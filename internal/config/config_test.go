package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entpool.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1700, cfg.Pools.Units)
	assert.Equal(t, uint32(8<<20), cfg.Limits.Bullets)
	assert.Equal(t, uint8(3), cfg.Host.SaveVersion)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[pools]
units = 3400
bullets = 500

[limits]
sprites = 1024

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3400, cfg.Pools.Units)
	assert.Equal(t, 500, cfg.Pools.Bullets)
	assert.Equal(t, 200000, cfg.Pools.Sprites, "untouched keys keep defaults")
	assert.Equal(t, uint32(1024), cfg.Limits.Sprites)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsOversizedUnitTable(t *testing.T) {
	path := writeConfig(t, "[pools]\nunits = 70000\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pools.units")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
