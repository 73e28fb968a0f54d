package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoArgs(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthToken, cfg.AuthToken)
	assert.Equal(t, 4, cfg.EnrichmentWorkers)
	assert.True(t, cfg.DevModeAuth())
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{"--auth-token=supersecret", "--enrichment-workers=8"})
	require.NoError(t, err)
	assert.Equal(t, "supersecret", cfg.AuthToken)
	assert.Equal(t, 8, cfg.EnrichmentWorkers)
	assert.False(t, cfg.DevModeAuth())
}

func TestLoadYAMLOverlayAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nasindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth_token: from-yaml\nenrichment_workers: 6\n"), 0o644))

	cfg, err := Load([]string{"--config=" + path})
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.AuthToken)
	assert.Equal(t, 6, cfg.EnrichmentWorkers)

	// An explicit flag still wins over the YAML overlay.
	cfg2, err := Load([]string{"--config=" + path, "--enrichment-workers=2"})
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg2.AuthToken)
	assert.Equal(t, 2, cfg2.EnrichmentWorkers)
}

func TestLoadEnvOverridesDefaultButNotFlag(t *testing.T) {
	t.Setenv("NASINDEX_ENRICHMENT_WORKERS", "9")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.EnrichmentWorkers)

	cfg2, err := Load([]string{"--enrichment-workers=3"})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg2.EnrichmentWorkers)
}

func TestLoadRejectsInvalidEnrichmentWorkers(t *testing.T) {
	_, err := Load([]string{"--enrichment-workers=0"})
	assert.Error(t, err)
}

func TestLoadRejectsBadConfigPath(t *testing.T) {
	_, err := Load([]string{"--config=/nonexistent/path.yaml"})
	assert.Error(t, err)
}
