package snapshot

import (
	"fmt"
	"sort"
	"time"
)

// AttributionType tags the relation a work has to a person in the source
// graph. The centrality scorer collapses all types to a single edge weight;
// the tag is kept so the collapse is an explicit, documented step rather
// than a loss at ingestion.
type AttributionType string

const (
	AttributionAuthor      AttributionType = "author"
	AttributionDirector    AttributionType = "director"
	AttributionNotableWork AttributionType = "notable_work"
)

// Person is one scholar record from the source snapshot. Birth and Death may
// be nil when the source leaves them open. Persons are immutable once the
// snapshot is built.
type Person struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Birth       *time.Time `json:"birth_date"`
	Death       *time.Time `json:"death_date"`
	Occupations []string   `json:"occupations"`
}

// Attribution links a work to one person with a tagged relation.
type Attribution struct {
	PersonID string          `json:"person_id"`
	Relation AttributionType `json:"relation"`
}

// Work is one work record from the source snapshot. Description may be empty;
// Published may be nil.
type Work struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Published    *time.Time    `json:"publication_date"`
	Attributions []Attribution `json:"attributions"`
}

// Snapshot is an immutable point-in-time copy of person/work/attribution data
// used for one ranking run. Build validates the raw records and resolves the
// invariants the ranking engine relies on: every attribution points at a
// person in the snapshot, no work carries duplicate attributions to the same
// person, and person date intervals are ordered.
type Snapshot struct {
	persons []Person
	works   []Work

	personIdx map[string]int
}

// Warning records a non-fatal integrity condition found while building a
// snapshot, such as a dropped dangling attribution.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnDanglingAttribution  = "dangling_attribution"
	WarnDuplicateAttribution = "duplicate_attribution"
	WarnInvertedDates        = "inverted_dates"
	WarnDuplicatePerson      = "duplicate_person"
	WarnDuplicateWork        = "duplicate_work"
)

// Build constructs a validated snapshot from raw person and work records.
// Malformed records are quarantined rather than propagated: persons with
// birth after death are dropped, duplicate person/work ids keep the first
// occurrence, attributions to unknown persons are removed. Every drop is
// recorded as a warning; a bad record never aborts the build.
func Build(persons []Person, works []Work) (*Snapshot, []Warning) {
	var warnings []Warning

	s := &Snapshot{
		persons:   make([]Person, 0, len(persons)),
		works:     make([]Work, 0, len(works)),
		personIdx: make(map[string]int, len(persons)),
	}

	for _, p := range persons {
		if _, ok := s.personIdx[p.ID]; ok {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicatePerson,
				Message: fmt.Sprintf("duplicate person id %s, keeping first occurrence", p.ID),
			})
			continue
		}
		if p.Birth != nil && p.Death != nil && p.Birth.After(*p.Death) {
			warnings = append(warnings, Warning{
				Code:    WarnInvertedDates,
				Message: fmt.Sprintf("person %s has birth after death, record quarantined", p.ID),
			})
			continue
		}
		s.personIdx[p.ID] = len(s.persons)
		s.persons = append(s.persons, p)
	}

	workSeen := make(map[string]struct{}, len(works))
	for _, w := range works {
		if _, ok := workSeen[w.ID]; ok {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicateWork,
				Message: fmt.Sprintf("duplicate work id %s, keeping first occurrence", w.ID),
			})
			continue
		}
		workSeen[w.ID] = struct{}{}

		kept := make([]Attribution, 0, len(w.Attributions))
		attrSeen := make(map[string]struct{}, len(w.Attributions))
		for _, a := range w.Attributions {
			if _, ok := s.personIdx[a.PersonID]; !ok {
				warnings = append(warnings, Warning{
					Code:    WarnDanglingAttribution,
					Message: fmt.Sprintf("work %s references unknown person %s, edge dropped", w.ID, a.PersonID),
				})
				continue
			}
			if _, ok := attrSeen[a.PersonID]; ok {
				warnings = append(warnings, Warning{
					Code:    WarnDuplicateAttribution,
					Message: fmt.Sprintf("work %s has multiple attributions to person %s, collapsed to one edge", w.ID, a.PersonID),
				})
				continue
			}
			attrSeen[a.PersonID] = struct{}{}
			kept = append(kept, a)
		}
		w.Attributions = kept
		s.works = append(s.works, w)
	}

	return s, warnings
}

// Persons returns the snapshot's persons sorted by id. The slice is a copy;
// the snapshot itself stays read-only.
func (s *Snapshot) Persons() []Person {
	out := make([]Person, len(s.persons))
	copy(out, s.persons)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Works returns the snapshot's works sorted by id. The slice is a copy.
func (s *Snapshot) Works() []Work {
	out := make([]Work, len(s.works))
	copy(out, s.works)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Person looks up a person by id.
func (s *Snapshot) Person(id string) (Person, bool) {
	idx, ok := s.personIdx[id]
	if !ok {
		return Person{}, false
	}
	return s.persons[idx], true
}

// PersonCount returns the number of persons in the snapshot.
func (s *Snapshot) PersonCount() int {
	return len(s.persons)
}

// WorkCount returns the number of works in the snapshot.
func (s *Snapshot) WorkCount() int {
	return len(s.works)
}
