package rank

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.ConceptText = "electromagnetism"
		cfg.EmbedDim = 8
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default with concept text", func(c *Config) {}, false},
		{"concept vector instead of text", func(c *Config) {
			c.ConceptText = ""
			c.ConceptVector = make([]float32, 8)
		}, false},
		{"era start equals end", func(c *Config) {
			c.EraEnd = c.EraStart
		}, true},
		{"era start after end", func(c *Config) {
			c.EraStart = time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
		}, true},
		{"zero tie epsilon", func(c *Config) {
			c.TieEpsilon = 0
		}, true},
		{"weights do not sum to one", func(c *Config) {
			c.Weights = Weights{Semantic: 0.5, Graph: 0.5, Temporal: 0.5}
		}, true},
		{"negative weight", func(c *Config) {
			c.Weights = Weights{Semantic: 1.5, Graph: -0.5, Temporal: 0}
		}, true},
		{"penalty above one", func(c *Config) {
			c.UnknownDatePenalty = 1.5
		}, true},
		{"zero max iterations", func(c *Config) {
			c.MaxIterations = 0
		}, true},
		{"zero tolerance", func(c *Config) {
			c.Tolerance = 0
		}, true},
		{"no concept at all", func(c *Config) {
			c.ConceptText = ""
		}, true},
		{"zero embed dim", func(c *Config) {
			c.EmbedDim = 0
		}, true},
		{"concept vector dimension mismatch", func(c *Config) {
			c.ConceptText = ""
			c.ConceptVector = make([]float32, 4)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("Validate() error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultConfigCoversTheEra(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.EraStart.Year() != 1801 || cfg.EraEnd.Year() != 1900 {
		t.Fatalf("default era = %s .. %s, want 1801 .. 1900",
			cfg.EraStart.Format("2006-01-02"), cfg.EraEnd.Format("2006-01-02"))
	}
	sum := cfg.Weights.Semantic + cfg.Weights.Graph + cfg.Weights.Temporal
	if diff := sum - 1.0; diff > cfg.TieEpsilon || diff < -cfg.TieEpsilon {
		t.Fatalf("default weights sum to %g, want 1", sum)
	}
}
