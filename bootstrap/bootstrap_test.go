package bootstrap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/bootstrap"
)

func TestLoadPrecedenceProgrammaticWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte("max_steps: 20\n"), 0o644))

	cfg, sources, err := bootstrap.Load(overlay, bootstrap.Config{MaxSteps: 99})
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.MaxSteps)
	assert.Equal(t, "programmatic", sources["max_steps"])
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	cfg, _, err := bootstrap.Load("", bootstrap.Config{})
	require.NoError(t, err)
	assert.Equal(t, bootstrap.Default().MaxSteps, cfg.MaxSteps)
}

func TestLoadYAMLOverlayWinsOverDefault(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte("recovery_mode: ask_first\n"), 0o644))

	cfg, sources, err := bootstrap.Load(overlay, bootstrap.Config{})
	require.NoError(t, err)
	assert.Equal(t, "ask_first", cfg.RecoveryMode)
	assert.Contains(t, sources["recovery_mode"], "yaml:")
}
