package rank

import (
	"math"
	"sort"
)

// degenerateRange is the spread under which a set of valid signal values is
// considered indistinguishable and min-max normalization is skipped.
const degenerateRange = 1e-12

// neutralValue stands in for a normalized signal when there is nothing to
// derive a median from, i.e. the signal has zero valid data points.
const neutralValue = 0.5

// personSignals holds the three raw scorer outputs for one person.
type personSignals struct {
	semantic SignalScore
	graph    SignalScore
	temporal SignalScore

	// rawGraph keeps the pre-normalization centrality for tie-breaking.
	rawGraph float64
}

// fuseScores normalizes the three signals onto [0,1], imputes missing ones
// with the population median, combines them by the configured weights, and
// assigns ranks under the deterministic tie-break order.
//
// personIDs must be sorted; it defines the candidate population. Persons
// with no valid signal at all are excluded and recorded in diagnostics.
func fuseScores(personIDs []string, signals map[string]personSignals, weights Weights, tieEps float64, diag *Diagnostics) []RankedEntry {
	semNorm := normalizeSignal(personIDs, signals, SignalSemantic, diag)
	graphNorm := normalizeSignal(personIDs, signals, SignalGraph, diag)
	tempNorm := normalizeSignal(personIDs, signals, SignalTemporal, diag)

	if diag.ImputedCounts == nil {
		diag.ImputedCounts = make(map[string]int)
	}

	entries := make([]RankedEntry, 0, len(personIDs))
	for _, pid := range personIDs {
		ps := signals[pid]
		if !ps.semantic.Valid && !ps.graph.Valid && !ps.temporal.Valid {
			diag.ExcludedPersons = append(diag.ExcludedPersons, pid)
			continue
		}

		entry := RankedEntry{
			PersonID: pid,
			rawGraph: ps.rawGraph,
		}

		entry.SemanticScore = signalOrImputed(pid, ps.semantic, semNorm, SignalSemantic, &entry, diag)
		entry.GraphScore = signalOrImputed(pid, ps.graph, graphNorm, SignalGraph, &entry, diag)
		entry.TemporalScore = signalOrImputed(pid, ps.temporal, tempNorm, SignalTemporal, &entry, diag)

		entry.FusedScore = weights.Semantic*entry.SemanticScore +
			weights.Graph*entry.GraphScore +
			weights.Temporal*entry.TemporalScore

		entries = append(entries, entry)
	}

	// Total order: fused score descending; within tie tolerance, raw
	// centrality descending, then person id ascending.
	sort.SliceStable(entries, func(i, j int) bool {
		if math.Abs(entries[i].FusedScore-entries[j].FusedScore) > tieEps {
			return entries[i].FusedScore > entries[j].FusedScore
		}
		if math.Abs(entries[i].rawGraph-entries[j].rawGraph) > tieEps {
			return entries[i].rawGraph > entries[j].rawGraph
		}
		return entries[i].PersonID < entries[j].PersonID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

// normalizedSignal carries per-person normalized values plus the population
// median used for imputation.
type normalizedSignal struct {
	values map[string]float64
	median float64
}

// normalizeSignal min-max normalizes one signal across the persons that have
// a valid value for it. With fewer than two valid data points, or a
// degenerate value range, normalization is skipped: values are passed
// through clamped to [0,1] and a diagnostic is recorded.
func normalizeSignal(personIDs []string, signals map[string]personSignals, name string, diag *Diagnostics) normalizedSignal {
	valid := make([]string, 0, len(personIDs))
	for _, pid := range personIDs {
		if signalByName(signals[pid], name).Valid {
			valid = append(valid, pid)
		}
	}

	out := normalizedSignal{
		values: make(map[string]float64, len(valid)),
		median: neutralValue,
	}

	if len(valid) == 0 {
		diag.SkippedNormalization = append(diag.SkippedNormalization, name)
		diag.warnf("signal %s has no valid data points, imputing %g for everyone", name, neutralValue)
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pid := range valid {
		v := signalByName(signals[pid], name).Value
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if len(valid) < 2 || hi-lo < degenerateRange {
		diag.SkippedNormalization = append(diag.SkippedNormalization, name)
		diag.warnf("signal %s has %d valid data points with degenerate range, normalization skipped", name, len(valid))
		for _, pid := range valid {
			out.values[pid] = clamp01(signalByName(signals[pid], name).Value)
		}
	} else {
		span := hi - lo
		for _, pid := range valid {
			out.values[pid] = (signalByName(signals[pid], name).Value - lo) / span
		}
	}

	sorted := make([]float64, 0, len(valid))
	for _, pid := range valid {
		sorted = append(sorted, out.values[pid])
	}
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		out.median = sorted[mid]
	} else {
		out.median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return out
}

func signalOrImputed(pid string, raw SignalScore, norm normalizedSignal, name string, entry *RankedEntry, diag *Diagnostics) float64 {
	if raw.Valid {
		return norm.values[pid]
	}
	entry.ImputedSignals = append(entry.ImputedSignals, name)
	diag.ImputedCounts[name]++
	return norm.median
}

func signalByName(ps personSignals, name string) SignalScore {
	switch name {
	case SignalSemantic:
		return ps.semantic
	case SignalGraph:
		return ps.graph
	case SignalTemporal:
		return ps.temporal
	}
	return SignalScore{}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
