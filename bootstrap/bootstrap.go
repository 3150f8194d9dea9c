// Package bootstrap resolves runtime configuration from, in increasing
// precedence: embedded defaults, YAML overlay files, environment
// variables, and programmatic overrides supplied by the embedding
// process. It records which source won for each field so a diagnostics
// command can explain the resolved configuration.
package bootstrap

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
type Config struct {
	WorkspaceDir       string `yaml:"workspace_dir"`
	MaxSteps           int    `yaml:"max_steps"`
	MaxWallSeconds     int    `yaml:"max_wall_seconds"`
	RecoveryMode       string `yaml:"recovery_mode"`
	InjectionMaxBytes  int    `yaml:"injection_max_bytes"`
	RuntimeIdleSeconds int    `yaml:"runtime_idle_seconds"`
}

// Default returns the embedded baseline configuration.
func Default() Config {
	return Config{
		WorkspaceDir:       ".",
		MaxSteps:           50,
		MaxWallSeconds:     600,
		RecoveryMode:       "compact_first",
		InjectionMaxBytes:  32 * 1024,
		RuntimeIdleSeconds: 900,
	}
}

// Sources records, per field, which layer last set its value.
type Sources map[string]string

// Load resolves configuration by layering, in order, the embedded
// defaults, an optional YAML overlay file, environment variables
// (SKILLSRUNTIME_*), and overrides, returning the final Config and a
// Sources map naming the winning layer for each field that some layer set
// to a non-zero value (fields left at their default have no entry).
func Load(overlayPath string, overrides Config) (Config, Sources, error) {
	cfg := Default()
	sources := Sources{}

	if overlayPath != "" {
		data, err := os.ReadFile(overlayPath)
		if err != nil {
			return Config{}, nil, fmt.Errorf("bootstrap: read overlay: %w", err)
		}
		var overlay Config
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return Config{}, nil, fmt.Errorf("bootstrap: parse overlay: %w", err)
		}
		applyNonZero(&cfg, overlay, sources, "yaml:"+overlayPath)
	}

	envCfg := fromEnv()
	applyNonZero(&cfg, envCfg, sources, "env")

	applyNonZero(&cfg, overrides, sources, "programmatic")

	return cfg, sources, nil
}

func fromEnv() Config {
	var c Config
	c.WorkspaceDir = os.Getenv("SKILLSRUNTIME_WORKSPACE_DIR")
	if v := os.Getenv("SKILLSRUNTIME_RECOVERY_MODE"); v != "" {
		c.RecoveryMode = v
	}
	return c
}

// applyNonZero overlays every non-zero field of overlay onto cfg,
// recording layer as the winning source for each field it touches.
func applyNonZero(cfg *Config, overlay Config, sources Sources, layer string) {
	if overlay.WorkspaceDir != "" {
		cfg.WorkspaceDir = overlay.WorkspaceDir
		sources["workspace_dir"] = layer
	}
	if overlay.MaxSteps != 0 {
		cfg.MaxSteps = overlay.MaxSteps
		sources["max_steps"] = layer
	}
	if overlay.MaxWallSeconds != 0 {
		cfg.MaxWallSeconds = overlay.MaxWallSeconds
		sources["max_wall_seconds"] = layer
	}
	if overlay.RecoveryMode != "" {
		cfg.RecoveryMode = overlay.RecoveryMode
		sources["recovery_mode"] = layer
	}
	if overlay.InjectionMaxBytes != 0 {
		cfg.InjectionMaxBytes = overlay.InjectionMaxBytes
		sources["injection_max_bytes"] = layer
	}
	if overlay.RuntimeIdleSeconds != 0 {
		cfg.RuntimeIdleSeconds = overlay.RuntimeIdleSeconds
		sources["runtime_idle_seconds"] = layer
	}
}

// String renders sources as a stable, sorted "field=layer" report.
func (s Sources) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, s[k])
	}
	return b.String()
}
