package rank

import "math"

// Centrality combination constants. The raw centrality of a person is a
// weighted sum of their attribution in-degree and their propagated
// importance from the fixed-point iteration; both are min-max normalized
// together during fusion, so only their relative scale matters.
const (
	centralityDamping     = 0.85
	inDegreeWeight        = 0.5
	propagatedWeight      = 0.5
	convergenceGuardValue = 1e-12
)

// centralityResult carries the raw per-person centrality values plus the
// termination state of the fixed-point iteration.
type centralityResult struct {
	scores     map[string]float64
	converged  bool
	iterations int
}

// computeCentrality runs a PageRank-like fixed-point computation on the
// bipartite work–person graph and combines it with the raw in-degree.
//
// Per iteration, each person spreads their importance evenly over their
// works, each work accumulates importance from its attributed persons, and
// each person then re-accumulates from their works split evenly across the
// work's attributions, damped toward the uniform distribution. The loop
// exits when the maximum relative change drops below tol or after maxIter
// iterations, whichever comes first; it never loops unbounded, regardless
// of graph topology.
//
// Persons with no attributed works are absent from the result: the graph
// signal is unavailable for isolated nodes.
func computeCentrality(g *authorshipGraph, maxIter int, tol float64) centralityResult {
	persons := g.connectedPersonIDs()
	n := len(persons)
	if n == 0 {
		return centralityResult{scores: map[string]float64{}, converged: true}
	}

	idx := make(map[string]int, n)
	for i, pid := range persons {
		idx[pid] = i
	}

	current := make([]float64, n)
	next := make([]float64, n)
	for i := range current {
		current[i] = 1.0 / float64(n)
	}

	workMass := make(map[string]float64, len(g.workIDs))
	base := (1.0 - centralityDamping) / float64(n)

	converged := false
	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1

		for _, wid := range g.workIDs {
			mass := 0.0
			for _, pid := range g.workAuthors[wid] {
				mass += current[idx[pid]] / float64(len(g.personWorks[pid]))
			}
			workMass[wid] = mass
		}

		for i, pid := range persons {
			acc := 0.0
			for _, wid := range g.personWorks[pid] {
				acc += workMass[wid] / float64(len(g.workAuthors[wid]))
			}
			next[i] = base + centralityDamping*acc
		}

		maxDelta := 0.0
		for i := range current {
			denom := math.Abs(current[i])
			if denom < convergenceGuardValue {
				denom = convergenceGuardValue
			}
			delta := math.Abs(next[i]-current[i]) / denom
			if delta > maxDelta {
				maxDelta = delta
			}
		}

		current, next = next, current

		if maxDelta < tol {
			converged = true
			break
		}
	}

	scores := make(map[string]float64, n)
	for i, pid := range persons {
		propagated := float64(n) * current[i]
		scores[pid] = inDegreeWeight*float64(g.inDegree(pid)) + propagatedWeight*propagated
	}

	return centralityResult{
		scores:     scores,
		converged:  converged,
		iterations: iterations,
	}
}
