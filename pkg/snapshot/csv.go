package snapshot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CSV layout produced by the crawler consolidation step:
//
//	scholars.csv      person_id,name,birth,death,occupations
//	works.csv         work_id,title,description,published
//	attributions.csv  work_id,person_id,relation
//
// Dates are ISO 8601 (date-only or full timestamp); empty fields mean
// unknown. Occupations are ';'-separated inside a single field.

const (
	PersonsFileName      = "scholars.csv"
	WorksFileName        = "works.csv"
	AttributionsFileName = "attributions.csv"

	occupationSeparator = ";"
)

// Load reads a full snapshot from the three CSV files inside dir and builds
// a validated Snapshot from them.
func Load(dir string) (*Snapshot, []Warning, error) {
	pf, err := os.Open(filepath.Join(dir, PersonsFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open persons file: %w", err)
	}
	defer pf.Close()

	wf, err := os.Open(filepath.Join(dir, WorksFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open works file: %w", err)
	}
	defer wf.Close()

	af, err := os.Open(filepath.Join(dir, AttributionsFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attributions file: %w", err)
	}
	defer af.Close()

	return Read(pf, wf, af)
}

// Read parses persons, works, and attributions from the given readers and
// builds a validated Snapshot.
func Read(persons, works, attributions io.Reader) (*Snapshot, []Warning, error) {
	ps, err := ReadPersons(persons)
	if err != nil {
		return nil, nil, err
	}
	ws, err := ReadWorks(works)
	if err != nil {
		return nil, nil, err
	}
	attrs, err := readAttributionRows(attributions)
	if err != nil {
		return nil, nil, err
	}

	byWork := make(map[string][]Attribution, len(ws))
	for _, a := range attrs {
		byWork[a.workID] = append(byWork[a.workID], Attribution{
			PersonID: a.personID,
			Relation: a.relation,
		})
	}
	for i := range ws {
		ws[i].Attributions = byWork[ws[i].ID]
	}

	snap, warnings := Build(ps, ws)
	return snap, warnings, nil
}

// ReadPersons parses person records from CSV. The first row is the header.
func ReadPersons(r io.Reader) ([]Person, error) {
	rows, err := readRows(r, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to read persons: %w", err)
	}

	out := make([]Person, 0, len(rows))
	for _, row := range rows {
		birth, err := parseDate(row[2])
		if err != nil {
			return nil, fmt.Errorf("person %s: bad birth date %q: %w", row[0], row[2], err)
		}
		death, err := parseDate(row[3])
		if err != nil {
			return nil, fmt.Errorf("person %s: bad death date %q: %w", row[0], row[3], err)
		}
		out = append(out, Person{
			ID:          row[0],
			Name:        row[1],
			Birth:       birth,
			Death:       death,
			Occupations: splitOccupations(row[4]),
		})
	}
	return out, nil
}

// ReadWorks parses work records from CSV. Attributions are read separately.
func ReadWorks(r io.Reader) ([]Work, error) {
	rows, err := readRows(r, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to read works: %w", err)
	}

	out := make([]Work, 0, len(rows))
	for _, row := range rows {
		published, err := parseDate(row[3])
		if err != nil {
			return nil, fmt.Errorf("work %s: bad publication date %q: %w", row[0], row[3], err)
		}
		out = append(out, Work{
			ID:          row[0],
			Title:       row[1],
			Description: row[2],
			Published:   published,
		})
	}
	return out, nil
}

type attributionRow struct {
	workID   string
	personID string
	relation AttributionType
}

// readAttributionRows parses work→person attribution edges from CSV. Unknown
// relation tags fall back to author; the centrality scorer collapses the
// tags to one weight either way.
func readAttributionRows(r io.Reader) ([]attributionRow, error) {
	rows, err := readRows(r, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributions: %w", err)
	}

	out := make([]attributionRow, 0, len(rows))
	for _, row := range rows {
		relation := AttributionType(row[2])
		switch relation {
		case AttributionAuthor, AttributionDirector, AttributionNotableWork:
		default:
			relation = AttributionAuthor
		}
		out = append(out, attributionRow{
			workID:   row[0],
			personID: row[1],
			relation: relation,
		})
	}
	return out, nil
}

func readRows(r io.Reader, wantFields int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			// header row
			first = false
			continue
		}
		if len(record) < wantFields {
			return nil, fmt.Errorf("row has %d fields, want %d", len(record), wantFields)
		}
		rows = append(rows, record[:wantFields])
	}
	return rows, nil
}

func splitOccupations(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, occupationSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDate accepts empty strings (unknown), date-only values, and full
// timestamps, including the leading '+' Wikidata puts on CE years.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "+")

	layouts := []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05Z"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// WritePersons writes person records as CSV with a header row.
func WritePersons(w io.Writer, persons []Person) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"person_id", "name", "birth", "death", "occupations"}); err != nil {
		return err
	}
	for _, p := range persons {
		row := []string{
			p.ID,
			p.Name,
			formatDate(p.Birth),
			formatDate(p.Death),
			strings.Join(p.Occupations, occupationSeparator),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWorks writes work records and their attribution edges as two CSV
// streams with header rows.
func WriteWorks(works io.Writer, attributions io.Writer, ws []Work) error {
	ww := csv.NewWriter(works)
	if err := ww.Write([]string{"work_id", "title", "description", "published"}); err != nil {
		return err
	}
	aw := csv.NewWriter(attributions)
	if err := aw.Write([]string{"work_id", "person_id", "relation"}); err != nil {
		return err
	}

	for _, w := range ws {
		if err := ww.Write([]string{w.ID, w.Title, w.Description, formatDate(w.Published)}); err != nil {
			return err
		}
		for _, a := range w.Attributions {
			if err := aw.Write([]string{w.ID, a.PersonID, string(a.Relation)}); err != nil {
				return err
			}
		}
	}

	ww.Flush()
	if err := ww.Error(); err != nil {
		return err
	}
	aw.Flush()
	return aw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
