package rank

import (
	"sort"

	"github.com/wisslab/wissrank/pkg/snapshot"
)

// authorshipGraph is the bipartite work→person attribution structure the
// centrality scorer operates on. It is built once per run from the snapshot
// and read-only afterward. Attribution relation tags (author, director,
// notable work) are collapsed to a single unit edge weight here; the
// distinction is preserved upstream in the snapshot.
type authorshipGraph struct {
	// personIDs and workIDs are sorted so every iteration over the graph is
	// deterministic.
	personIDs []string
	workIDs   []string

	workAuthors map[string][]string // work id → sorted attributed person ids
	personWorks map[string][]string // person id → sorted work ids
}

// buildAuthorshipGraph constructs the graph from a validated snapshot. The
// snapshot has already dropped dangling and duplicate attributions; the
// no-self-loop invariant is enforced again here since a person attributed to
// a record carrying their own id must not inflate their centrality.
func buildAuthorshipGraph(snap *snapshot.Snapshot) *authorshipGraph {
	g := &authorshipGraph{
		workAuthors: make(map[string][]string),
		personWorks: make(map[string][]string),
	}

	for _, p := range snap.Persons() {
		g.personIDs = append(g.personIDs, p.ID)
	}

	for _, w := range snap.Works() {
		authors := make([]string, 0, len(w.Attributions))
		for _, a := range w.Attributions {
			if a.PersonID == w.ID {
				// self-loop
				continue
			}
			authors = append(authors, a.PersonID)
		}
		if len(authors) == 0 {
			continue
		}
		sort.Strings(authors)

		g.workIDs = append(g.workIDs, w.ID)
		g.workAuthors[w.ID] = authors
		for _, pid := range authors {
			g.personWorks[pid] = append(g.personWorks[pid], w.ID)
		}
	}

	for pid := range g.personWorks {
		sort.Strings(g.personWorks[pid])
	}

	return g
}

// inDegree returns the number of works attributed to the person.
func (g *authorshipGraph) inDegree(personID string) int {
	return len(g.personWorks[personID])
}

// connectedPersonIDs returns, in sorted order, the persons with at least one
// attributed work. Everyone else is invalid for the graph signal.
func (g *authorshipGraph) connectedPersonIDs() []string {
	out := make([]string, 0, len(g.personWorks))
	for _, pid := range g.personIDs {
		if len(g.personWorks[pid]) > 0 {
			out = append(out, pid)
		}
	}
	return out
}
