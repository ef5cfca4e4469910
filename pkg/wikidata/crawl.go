package wikidata

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/snapshot"
)

const worksBatchSize = 50

// Occupation is one scholarly occupation class.
type Occupation struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Occupations fetches every occupation that is a subclass of the scholar
// class, sorted by id.
func (c *Client) Occupations(ctx context.Context) ([]Occupation, error) {
	bindings, err := c.query(ctx, queryOccupations)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(bindings))
	occs := make([]Occupation, 0, len(bindings))
	for _, b := range bindings {
		id := b.entityID("occ")
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		occs = append(occs, Occupation{ID: id, Label: b.value("lblEN")})
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].ID < occs[j].ID })
	return occs, nil
}

// PeopleByOccupation pages through every person holding the given occupation.
// The second return value carries the notable-work edges found on the person
// records; their works may not surface through authorship queries.
func (c *Client) PeopleByOccupation(ctx context.Context, occ Occupation) ([]snapshot.Person, []snapshot.Work, error) {
	template := strings.ReplaceAll(queryPeopleTemplate, "{OCC_ID}", occ.ID)

	byID := make(map[string]*snapshot.Person)
	var order []string
	notable := make(map[string]*snapshot.Work)
	var notableOrder []string

	err := c.paged(ctx, template, func(b binding) error {
		pid := b.entityID("person")
		if pid == "" {
			return nil
		}

		p, ok := byID[pid]
		if !ok {
			p = &snapshot.Person{
				ID:    pid,
				Name:  b.value("personLabel"),
				Birth: parseWikidataTime(b.value("birth")),
				Death: parseWikidataTime(b.value("death")),
			}
			byID[pid] = p
			order = append(order, pid)
		}
		occLabel := b.value("occLabel")
		if occLabel == "" {
			occLabel = occ.ID
		}
		p.Occupations = appendUnique(p.Occupations, occLabel)

		if wid := b.entityID("notableWork"); wid != "" {
			w, ok := notable[wid]
			if !ok {
				w = &snapshot.Work{ID: wid, Title: b.value("notableWorkLabel")}
				notable[wid] = w
				notableOrder = append(notableOrder, wid)
			}
			w.Attributions = appendAttribution(w.Attributions, snapshot.Attribution{
				PersonID: pid,
				Relation: snapshot.AttributionNotableWork,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	persons := make([]snapshot.Person, 0, len(order))
	for _, pid := range order {
		persons = append(persons, *byID[pid])
	}
	works := make([]snapshot.Work, 0, len(notableOrder))
	for _, wid := range notableOrder {
		works = append(works, *notable[wid])
	}
	logger.Info("[Wikidata] Crawled occupation", "occupation", occ.ID, "persons", len(persons), "notable_works", len(works))
	return persons, works, nil
}

// WorksByPeople fetches the works authored or created by the given persons,
// batching the VALUES clause.
func (c *Client) WorksByPeople(ctx context.Context, personIDs []string) ([]snapshot.Work, error) {
	byID := make(map[string]*snapshot.Work)
	var order []string

	for start := 0; start < len(personIDs); start += worksBatchSize {
		end := min(start+worksBatchSize, len(personIDs))

		values := make([]string, 0, end-start)
		for _, pid := range personIDs[start:end] {
			values = append(values, "wd:"+pid)
		}
		query := strings.ReplaceAll(queryWorksTemplate, "{PERSON_IDS}", strings.Join(values, " "))

		bindings, err := c.query(ctx, query)
		if err != nil {
			return nil, err
		}

		for _, b := range bindings {
			wid := b.entityID("work")
			pid := b.entityID("person")
			if wid == "" || pid == "" {
				continue
			}

			w, ok := byID[wid]
			if !ok {
				w = &snapshot.Work{
					ID:          wid,
					Title:       b.value("workLabel"),
					Description: b.value("workDescription"),
					Published:   parseWikidataTime(b.value("published")),
				}
				byID[wid] = w
				order = append(order, wid)
			}
			w.Attributions = appendAttribution(w.Attributions, snapshot.Attribution{
				PersonID: pid,
				Relation: snapshot.AttributionAuthor,
			})
		}
	}

	works := make([]snapshot.Work, 0, len(order))
	for _, wid := range order {
		works = append(works, *byID[wid])
	}
	return works, nil
}

// Era mask applied when consolidating crawled people: keep lives that can
// overlap the target century. Death-unknown records always pass.
const (
	eraMaxBirthYear = 1901
	eraMinDeathYear = 1800
)

// FilterEra keeps only people whose life plausibly overlaps the target era.
// A person with an unknown death passes regardless of birth; a known death
// requires a known birth no later than eraMaxBirthYear and a death no earlier
// than eraMinDeathYear.
func FilterEra(persons []snapshot.Person) []snapshot.Person {
	kept := make([]snapshot.Person, 0, len(persons))
	for _, p := range persons {
		if p.Death == nil {
			kept = append(kept, p)
			continue
		}
		if p.Birth == nil {
			continue
		}
		if p.Birth.Year() <= eraMaxBirthYear && p.Death.Year() >= eraMinDeathYear {
			kept = append(kept, p)
		}
	}
	return kept
}

// MergeWorks combines authored and notable works, deduplicating by work id.
// Authored entries win on metadata; attribution edges are unioned with
// author relations taking precedence over notable_work for the same pair.
func MergeWorks(authored, notable []snapshot.Work) []snapshot.Work {
	byID := make(map[string]*snapshot.Work, len(authored))
	var order []string

	for _, w := range authored {
		cp := w
		byID[w.ID] = &cp
		order = append(order, w.ID)
	}
	for _, w := range notable {
		existing, ok := byID[w.ID]
		if !ok {
			cp := w
			byID[w.ID] = &cp
			order = append(order, w.ID)
			continue
		}
		if existing.Title == "" {
			existing.Title = w.Title
		}
		for _, a := range w.Attributions {
			existing.Attributions = appendAttribution(existing.Attributions, a)
		}
	}

	out := make([]snapshot.Work, 0, len(order))
	for _, wid := range order {
		out = append(out, *byID[wid])
	}
	return out
}

// parseWikidataTime parses WDQS timestamps, which prefix CE years with '+'.
// Unparseable or empty values mean unknown.
func parseWikidataTime(s string) *time.Time {
	s = strings.TrimSpace(strings.TrimPrefix(s, "+"))
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func appendAttribution(list []snapshot.Attribution, a snapshot.Attribution) []snapshot.Attribution {
	for _, existing := range list {
		if existing.PersonID == a.PersonID {
			return list
		}
	}
	return append(list, a)
}
