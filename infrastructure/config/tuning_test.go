package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTuningFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTuningConfig_PartialOverride(t *testing.T) {
	path := writeTuningFile(t, `
scorer:
  entityWeight: 0.6
  minConfidence: 0.4
layout:
  idealEdgeLength: 150
`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Scorer.EntityWeight)
	assert.Equal(t, 0.4, cfg.Scorer.MinConfidence)
	assert.Equal(t, 150.0, cfg.Layout.IdealEdgeLength)

	// everything not overridden keeps its default
	defaults := DefaultTuningConfig()
	assert.Equal(t, defaults.Scorer.TemporalWeight, cfg.Scorer.TemporalWeight)
	assert.Equal(t, defaults.Layout.Damping, cfg.Layout.Damping)
	assert.Equal(t, defaults.Layout.MaxIterations, cfg.Layout.MaxIterations)
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "a missing file is an error, not a silent default")

	_, err = LoadTuningConfig(writeTuningFile(t, "scorer: [not, a, map]"))
	assert.Error(t, err, "malformed yaml must be rejected")
}

func TestTuningConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TuningConfig)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*TuningConfig) {},
		},
		{
			name:    "negative weight",
			mutate:  func(c *TuningConfig) { c.Scorer.EntityWeight = -0.1 },
			wantErr: true,
		},
		{
			name: "all weights zero",
			mutate: func(c *TuningConfig) {
				c.Scorer.EntityWeight = 0
				c.Scorer.TemporalWeight = 0
				c.Scorer.ContentWeight = 0
			},
			wantErr: true,
		},
		{
			name:    "minConfidence above one",
			mutate:  func(c *TuningConfig) { c.Scorer.MinConfidence = 1.5 },
			wantErr: true,
		},
		{
			name:    "damping at one never converges",
			mutate:  func(c *TuningConfig) { c.Layout.Damping = 1.0 },
			wantErr: true,
		},
		{
			name:    "zero iterations",
			mutate:  func(c *TuningConfig) { c.Layout.MaxIterations = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive edge length",
			mutate:  func(c *TuningConfig) { c.Layout.IdealEdgeLength = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTuningConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTuningConfig_Conversions(t *testing.T) {
	cfg := DefaultTuningConfig()
	cfg.Scorer.EntityWeight = 0.7
	cfg.Layout.RegionHops = 3

	scorer := cfg.ToScorerConfig()
	assert.Equal(t, 0.7, scorer.Weights.Entity)
	assert.Equal(t, cfg.Scorer.MinConfidence, scorer.MinConfidence)

	lay := cfg.ToLayoutConfig()
	assert.Equal(t, 3, lay.RegionHops)
	assert.Equal(t, cfg.Layout.IdealEdgeLength, lay.IdealEdgeLength)
}
