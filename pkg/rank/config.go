package rank

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrConfiguration marks fatal configuration problems. A run aborts before
// any scoring starts when its configuration fails validation.
var ErrConfiguration = errors.New("invalid ranking configuration")

// Signal names used in scores, imputation flags, and diagnostics.
const (
	SignalSemantic = "semantic"
	SignalGraph    = "graph"
	SignalTemporal = "temporal"
)

// Defaults for a ranking run. All of these are explicit configuration so a
// run is reproducible from its Config plus snapshot; the constants here are
// only the starting values.
const (
	// DefaultUnknownDatePenalty discounts the temporal score of persons with
	// exactly one known life date, reflecting the uncertainty of the open bound.
	DefaultUnknownDatePenalty = 0.5

	// DefaultMaxIterations caps the centrality fixed-point computation so a
	// run terminates on any graph topology.
	DefaultMaxIterations = 50

	// DefaultTolerance is the relative change under which the centrality
	// iteration counts as converged.
	DefaultTolerance = 1e-6

	// DefaultTieEpsilon is the tolerance under which two fused scores count
	// as tied and the tie-break order applies.
	DefaultTieEpsilon = 1e-9
)

// Weights are the linear fusion weights for the three signals. They must sum
// to 1 within TieEpsilon.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Graph    float64 `json:"graph"`
	Temporal float64 `json:"temporal"`
}

// Config is the immutable configuration for one ranking run.
//
// Exactly one of ConceptVector and ConceptText must be set: a pre-computed
// concept vector is used as-is, otherwise ConceptText is embedded once at
// load time. EmbedDim is the expected vector length for both the concept
// and all person embeddings.
type Config struct {
	EraStart time.Time `json:"era_start"`
	EraEnd   time.Time `json:"era_end"`

	Weights Weights `json:"weights"`

	ConceptText   string    `json:"concept_text,omitempty"`
	ConceptVector []float32 `json:"concept_vector,omitempty"`
	EmbedDim      int       `json:"embed_dim"`

	UnknownDatePenalty float64 `json:"unknown_date_penalty"`
	MaxIterations      int     `json:"max_iterations"`
	Tolerance          float64 `json:"tolerance"`
	TieEpsilon         float64 `json:"tie_epsilon"`
}

// DefaultConfig returns the standard configuration: the 19th-century era,
// equal-thirds weights, and the documented default constants. ConceptText or
// ConceptVector and EmbedDim still have to be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		EraStart: time.Date(1801, 1, 1, 0, 0, 0, 0, time.UTC),
		EraEnd:   time.Date(1900, 12, 31, 0, 0, 0, 0, time.UTC),
		Weights: Weights{
			Semantic: 1.0 / 3.0,
			Graph:    1.0 / 3.0,
			Temporal: 1.0 / 3.0,
		},
		UnknownDatePenalty: DefaultUnknownDatePenalty,
		MaxIterations:      DefaultMaxIterations,
		Tolerance:          DefaultTolerance,
		TieEpsilon:         DefaultTieEpsilon,
	}
}

// Validate checks the configuration and returns an error wrapping
// ErrConfiguration on the first violation. A config that fails validation
// must never reach the scoring phase.
func (c Config) Validate() error {
	if !c.EraStart.Before(c.EraEnd) {
		return fmt.Errorf("%w: era start %s is not before era end %s",
			ErrConfiguration, c.EraStart.Format("2006-01-02"), c.EraEnd.Format("2006-01-02"))
	}

	eps := c.TieEpsilon
	if eps <= 0 {
		return fmt.Errorf("%w: tie epsilon must be positive, got %g", ErrConfiguration, eps)
	}
	sum := c.Weights.Semantic + c.Weights.Graph + c.Weights.Temporal
	if math.Abs(sum-1.0) > eps {
		return fmt.Errorf("%w: weights sum to %g, want 1", ErrConfiguration, sum)
	}
	if c.Weights.Semantic < 0 || c.Weights.Graph < 0 || c.Weights.Temporal < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrConfiguration)
	}

	if c.UnknownDatePenalty < 0 || c.UnknownDatePenalty > 1 {
		return fmt.Errorf("%w: unknown date penalty %g outside [0,1]", ErrConfiguration, c.UnknownDatePenalty)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrConfiguration, c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: convergence tolerance must be positive, got %g", ErrConfiguration, c.Tolerance)
	}

	if len(c.ConceptVector) == 0 && len(c.ConceptText) == 0 {
		return fmt.Errorf("%w: either concept vector or concept text must be set", ErrConfiguration)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: embed dim must be positive, got %d", ErrConfiguration, c.EmbedDim)
	}
	if len(c.ConceptVector) > 0 && len(c.ConceptVector) != c.EmbedDim {
		return fmt.Errorf("%w: concept vector has dimension %d, want %d",
			ErrConfiguration, len(c.ConceptVector), c.EmbedDim)
	}

	return nil
}
