package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, 16, cfg.Beacon.PoWDifficultyBits)
	require.Equal(t, 5, cfg.Beacon.SybilThreshold)
	require.Equal(t, 128, cfg.Relay.MaxReservations)
	require.False(t, cfg.Relay.Enabled)
	require.False(t, cfg.Facade.Enabled)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "beacon:\n  pow_difficulty_bits: 20\nrelay:\n  enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Beacon.PoWDifficultyBits)
	require.True(t, cfg.Relay.Enabled)
	// Fields untouched by the overlay keep their defaults.
	require.Equal(t, 5, cfg.Beacon.SybilThreshold)
	require.Equal(t, "p2pcore", cfg.Relay.Realm)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	require.Equal(t, 1800*1e9, float64(cfg.Beacon.SybilWindow()))
	require.Equal(t, 30*1e9, float64(cfg.Mux.KeepAliveInterval()))
	require.Equal(t, 3600*1e9, float64(cfg.Relay.ReservationTTL()))
}
