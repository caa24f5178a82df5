package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"screengraph-backend/domain/layout"
	domainservices "screengraph-backend/domain/services"
)

// TuningConfig is the runtime-changeable part of the configuration: the
// scoring weights and layout constants. The figures are starting points to
// tune against real collections, not validated ground truth, which is why
// they live in a hot-reloadable file instead of code.
type TuningConfig struct {
	Scorer ScorerTuning `yaml:"scorer"`
	Layout LayoutTuning `yaml:"layout"`
}

// ScorerTuning mirrors the knobs of the relationship scorer
type ScorerTuning struct {
	EntityWeight       float64 `yaml:"entityWeight"`
	TemporalWeight     float64 `yaml:"temporalWeight"`
	ContentWeight      float64 `yaml:"contentWeight"`
	MinConfidence      float64 `yaml:"minConfidence"`
	TemporalWindowDays float64 `yaml:"temporalWindowDays"`
	FuzzyMatchFloor    float64 `yaml:"fuzzyMatchFloor"`
	CompositeMargin    float64 `yaml:"compositeMargin"`
	ContentCap         float64 `yaml:"contentCap"`
}

// LayoutTuning mirrors the knobs of the layout engine
type LayoutTuning struct {
	IdealEdgeLength    float64 `yaml:"idealEdgeLength"`
	AttractionStrength float64 `yaml:"attractionStrength"`
	RepulsionStrength  float64 `yaml:"repulsionStrength"`
	CenteringStrength  float64 `yaml:"centeringStrength"`
	Damping            float64 `yaml:"damping"`
	MaxIterations      int     `yaml:"maxIterations"`
	RegionHops         int     `yaml:"regionHops"`
}

// DefaultTuningConfig mirrors the in-code defaults
func DefaultTuningConfig() *TuningConfig {
	scorer := domainservices.DefaultScorerConfig()
	lay := layout.DefaultConfig()
	return &TuningConfig{
		Scorer: ScorerTuning{
			EntityWeight:       scorer.Weights.Entity,
			TemporalWeight:     scorer.Weights.Temporal,
			ContentWeight:      scorer.Weights.Content,
			MinConfidence:      scorer.MinConfidence,
			TemporalWindowDays: scorer.TemporalWindowDays,
			FuzzyMatchFloor:    scorer.FuzzyMatchFloor,
			CompositeMargin:    scorer.CompositeMargin,
			ContentCap:         scorer.ContentCap,
		},
		Layout: LayoutTuning{
			IdealEdgeLength:    lay.IdealEdgeLength,
			AttractionStrength: lay.AttractionStrength,
			RepulsionStrength:  lay.RepulsionStrength,
			CenteringStrength:  lay.CenteringStrength,
			Damping:            lay.Damping,
			MaxIterations:      lay.MaxIterations,
			RegionHops:         lay.RegionHops,
		},
	}
}

// LoadTuningConfig reads and validates a tuning file
func LoadTuningConfig(path string) (*TuningConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning file: %w", err)
	}

	cfg := DefaultTuningConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing tuning file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects tuning values the engine cannot run with
func (t *TuningConfig) Validate() error {
	s := t.Scorer
	if s.EntityWeight < 0 || s.TemporalWeight < 0 || s.ContentWeight < 0 {
		return fmt.Errorf("scorer weights must not be negative")
	}
	if s.EntityWeight+s.TemporalWeight+s.ContentWeight == 0 {
		return fmt.Errorf("at least one scorer weight must be positive")
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("minConfidence must be in [0,1]")
	}
	l := t.Layout
	if l.Damping <= 0 || l.Damping >= 1 {
		return fmt.Errorf("damping must be in (0,1)")
	}
	if l.MaxIterations <= 0 {
		return fmt.Errorf("maxIterations must be positive")
	}
	if l.IdealEdgeLength <= 0 {
		return fmt.Errorf("idealEdgeLength must be positive")
	}
	return nil
}

// ToScorerConfig converts the tuning into a scorer configuration
func (t *TuningConfig) ToScorerConfig() *domainservices.ScorerConfig {
	cfg := domainservices.DefaultScorerConfig()
	cfg.Weights.Entity = t.Scorer.EntityWeight
	cfg.Weights.Temporal = t.Scorer.TemporalWeight
	cfg.Weights.Content = t.Scorer.ContentWeight
	cfg.MinConfidence = t.Scorer.MinConfidence
	cfg.TemporalWindowDays = t.Scorer.TemporalWindowDays
	cfg.FuzzyMatchFloor = t.Scorer.FuzzyMatchFloor
	cfg.CompositeMargin = t.Scorer.CompositeMargin
	cfg.ContentCap = t.Scorer.ContentCap
	return cfg
}

// ToLayoutConfig converts the tuning into a layout engine configuration
func (t *TuningConfig) ToLayoutConfig() *layout.Config {
	cfg := layout.DefaultConfig()
	cfg.IdealEdgeLength = t.Layout.IdealEdgeLength
	cfg.AttractionStrength = t.Layout.AttractionStrength
	cfg.RepulsionStrength = t.Layout.RepulsionStrength
	cfg.CenteringStrength = t.Layout.CenteringStrength
	cfg.Damping = t.Layout.Damping
	cfg.MaxIterations = t.Layout.MaxIterations
	cfg.RegionHops = t.Layout.RegionHops
	return cfg
}
