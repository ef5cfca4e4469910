package rank

import "fmt"

// RankedEntry is one row of the final ranking. Ranks are contiguous integers
// starting at 1 with no gaps or duplicates; signal scores are the normalized
// values that entered fusion, imputed ones included.
type RankedEntry struct {
	PersonID       string   `json:"person_id"`
	Rank           int      `json:"rank"`
	FusedScore     float64  `json:"fused_score"`
	SemanticScore  float64  `json:"semantic_score"`
	GraphScore     float64  `json:"graph_score"`
	TemporalScore  float64  `json:"temporal_score"`
	ImputedSignals []string `json:"imputed_signals"`

	// rawGraph is the pre-normalization centrality used for tie-breaking.
	rawGraph float64
}

// Diagnostics aggregates every non-fatal condition of one run. The caller
// decides whether any of it blocks downstream use; the engine never aborts
// for a condition recorded here.
type Diagnostics struct {
	Warnings []string `json:"warnings,omitempty"`

	// ApproximateCentrality is set when the centrality fixed point hit the
	// iteration cap without meeting tolerance and the last iterate was used.
	ApproximateCentrality bool `json:"approximate_centrality"`
	CentralityIterations  int  `json:"centrality_iterations"`

	// SkippedNormalization lists signals with fewer than two valid data
	// points, for which min-max normalization degenerated to identity.
	SkippedNormalization []string `json:"skipped_normalization,omitempty"`

	// ExcludedPersons lists persons with no valid signal at all; they carry
	// no information to rank on and are left out of the result.
	ExcludedPersons []string `json:"excluded_persons,omitempty"`

	ImputedCounts map[string]int `json:"imputed_counts,omitempty"`
}

func (d *Diagnostics) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Result is the full output of one ranking run.
type Result struct {
	Entries     []RankedEntry `json:"entries"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}
