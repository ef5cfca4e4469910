package rank

import (
	"math"
	"reflect"
	"sort"
	"testing"
)

func equalThirds() Weights {
	return Weights{Semantic: 1.0 / 3.0, Graph: 1.0 / 3.0, Temporal: 1.0 / 3.0}
}

func TestFuseScoresRankTotality(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	signals := map[string]personSignals{
		"a": {semantic: validScore(0.9), graph: validScore(3), temporal: validScore(1.0), rawGraph: 3},
		"b": {semantic: validScore(0.5), graph: validScore(2), temporal: validScore(0.5), rawGraph: 2},
		"c": {semantic: validScore(0.1), graph: validScore(1), temporal: validScore(0.0), rawGraph: 1},
		"d": {semantic: invalidScore(), graph: validScore(1.5), temporal: invalidScore(), rawGraph: 1.5},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, equalThirds(), DefaultTieEpsilon, &diag)

	if len(entries) != len(ids) {
		t.Fatalf("fuseScores() returned %d entries, want %d", len(entries), len(ids))
	}
	seen := make(map[int]bool)
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Errorf("entry %d has rank %d, want %d (ranks must be contiguous)", i, e.Rank, i+1)
		}
		if seen[e.Rank] {
			t.Errorf("duplicate rank %d", e.Rank)
		}
		seen[e.Rank] = true
	}
}

func TestFuseScoresNormalizationBounds(t *testing.T) {
	ids := []string{"a", "b", "c"}
	signals := map[string]personSignals{
		"a": {semantic: validScore(0.2), graph: validScore(17), temporal: validScore(0.3), rawGraph: 17},
		"b": {semantic: validScore(0.9), graph: validScore(250), temporal: validScore(0.8), rawGraph: 250},
		"c": {semantic: validScore(0.4), graph: validScore(42), temporal: validScore(0.1), rawGraph: 42},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, equalThirds(), DefaultTieEpsilon, &diag)

	for _, e := range entries {
		for name, v := range map[string]float64{
			"semantic": e.SemanticScore,
			"graph":    e.GraphScore,
			"temporal": e.TemporalScore,
			"fused":    e.FusedScore,
		} {
			if v < 0 || v > 1 {
				t.Errorf("person %s %s score = %g, outside [0,1]", e.PersonID, name, v)
			}
		}
	}
}

func TestFuseScoresMedianImputationFairness(t *testing.T) {
	// "missing" has no semantic signal; "below" has a valid semantic score
	// under the population median. With identical graph and temporal
	// signals, the imputed person must never rank below the below-median one.
	ids := []string{"below", "high1", "high2", "low1", "missing"}
	signals := map[string]personSignals{
		"high1":   {semantic: validScore(0.9), graph: validScore(1), temporal: validScore(0.5), rawGraph: 1},
		"high2":   {semantic: validScore(0.8), graph: validScore(1), temporal: validScore(0.5), rawGraph: 1},
		"low1":    {semantic: validScore(0.3), graph: validScore(1), temporal: validScore(0.5), rawGraph: 1},
		"below":   {semantic: validScore(0.1), graph: validScore(1), temporal: validScore(0.5), rawGraph: 1},
		"missing": {semantic: invalidScore(), graph: validScore(1), temporal: validScore(0.5), rawGraph: 1},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, equalThirds(), DefaultTieEpsilon, &diag)

	byID := make(map[string]RankedEntry, len(entries))
	for _, e := range entries {
		byID[e.PersonID] = e
	}

	if byID["missing"].FusedScore < byID["below"].FusedScore {
		t.Fatalf("imputed person fused = %g below below-median person fused = %g",
			byID["missing"].FusedScore, byID["below"].FusedScore)
	}
	if !reflect.DeepEqual(byID["missing"].ImputedSignals, []string{SignalSemantic}) {
		t.Fatalf("imputed signals = %v, want [semantic]", byID["missing"].ImputedSignals)
	}
	if diag.ImputedCounts[SignalSemantic] != 1 {
		t.Fatalf("imputed count for semantic = %d, want 1", diag.ImputedCounts[SignalSemantic])
	}
}

func TestFuseScoresSkipsDegenerateNormalization(t *testing.T) {
	// Only one person has a valid graph value: normalization must be skipped
	// for that signal and a diagnostic recorded; the lone value is clamped
	// into [0,1].
	ids := []string{"a", "b"}
	signals := map[string]personSignals{
		"a": {semantic: validScore(0.2), graph: validScore(7), temporal: validScore(0.5), rawGraph: 7},
		"b": {semantic: validScore(0.8), graph: invalidScore(), temporal: validScore(0.5)},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, equalThirds(), DefaultTieEpsilon, &diag)

	found := false
	for _, s := range diag.SkippedNormalization {
		if s == SignalGraph {
			found = true
		}
	}
	if !found {
		t.Fatalf("SkippedNormalization = %v, want to contain %q", diag.SkippedNormalization, SignalGraph)
	}

	for _, e := range entries {
		if e.GraphScore < 0 || e.GraphScore > 1 {
			t.Errorf("person %s graph score = %g, outside [0,1]", e.PersonID, e.GraphScore)
		}
	}
}

func TestFuseScoresExcludesPersonsWithNoSignals(t *testing.T) {
	ids := []string{"scored", "empty"}
	signals := map[string]personSignals{
		"scored": {semantic: validScore(0.5), graph: validScore(1), temporal: validScore(0.5), rawGraph: 1},
		"empty":  {semantic: invalidScore(), graph: invalidScore(), temporal: invalidScore()},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, equalThirds(), DefaultTieEpsilon, &diag)

	if len(entries) != 1 {
		t.Fatalf("fuseScores() returned %d entries, want 1", len(entries))
	}
	if entries[0].PersonID != "scored" {
		t.Fatalf("ranked person = %s, want scored", entries[0].PersonID)
	}
	if !reflect.DeepEqual(diag.ExcludedPersons, []string{"empty"}) {
		t.Fatalf("ExcludedPersons = %v, want [empty]", diag.ExcludedPersons)
	}
}

func TestFuseScoresTieBreak(t *testing.T) {
	// Identical fused scores: descending raw centrality first, then
	// ascending person id.
	ids := []string{"x", "y", "z"}
	signals := map[string]personSignals{
		"x": {semantic: validScore(0.5), graph: validScore(2), temporal: validScore(0.5), rawGraph: 1.0},
		"y": {semantic: validScore(0.5), graph: validScore(2), temporal: validScore(0.5), rawGraph: 5.0},
		"z": {semantic: validScore(0.5), graph: validScore(2), temporal: validScore(0.5), rawGraph: 1.0},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, equalThirds(), DefaultTieEpsilon, &diag)

	gotOrder := []string{entries[0].PersonID, entries[1].PersonID, entries[2].PersonID}
	wantOrder := []string{"y", "x", "z"}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Fatalf("tie-break order = %v, want %v", gotOrder, wantOrder)
	}
}

func TestFuseScoresSingleSignalRecovery(t *testing.T) {
	// With all weight on the semantic signal the fused order must equal the
	// order by normalized semantic score alone.
	ids := []string{"a", "b", "c", "d"}
	signals := map[string]personSignals{
		"a": {semantic: validScore(0.31), graph: validScore(9), temporal: validScore(0.1), rawGraph: 9},
		"b": {semantic: validScore(0.93), graph: validScore(1), temporal: validScore(0.9), rawGraph: 1},
		"c": {semantic: validScore(0.55), graph: validScore(5), temporal: validScore(0.4), rawGraph: 5},
		"d": {semantic: validScore(0.12), graph: validScore(7), temporal: validScore(0.8), rawGraph: 7},
	}

	diag := Diagnostics{}
	entries := fuseScores(ids, signals, Weights{Semantic: 1}, DefaultTieEpsilon, &diag)

	bySemantic := make([]string, len(ids))
	copy(bySemantic, ids)
	sort.Slice(bySemantic, func(i, j int) bool {
		return signals[bySemantic[i]].semantic.Value > signals[bySemantic[j]].semantic.Value
	})

	gotOrder := make([]string, len(entries))
	for i, e := range entries {
		gotOrder[i] = e.PersonID
	}
	if !reflect.DeepEqual(gotOrder, bySemantic) {
		t.Fatalf("fused order = %v, want semantic order %v", gotOrder, bySemantic)
	}
}

func TestNormalizeSignalMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd count", []float64{0.0, 0.5, 1.0}, 0.5},
		{"even count", []float64{0.0, 0.2, 0.8, 1.0}, 0.5},
		{"two points", []float64{0.0, 1.0}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, len(tt.values))
			signals := make(map[string]personSignals, len(tt.values))
			for i, v := range tt.values {
				id := string(rune('a' + i))
				ids[i] = id
				signals[id] = personSignals{temporal: validScore(v)}
			}

			diag := Diagnostics{}
			norm := normalizeSignal(ids, signals, SignalTemporal, &diag)
			if math.Abs(norm.median-tt.want) > 1e-12 {
				t.Errorf("median = %g, want %g", norm.median, tt.want)
			}
		})
	}
}
