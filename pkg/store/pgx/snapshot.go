package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/snapshot"
	"github.com/wisslab/wissrank/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const (
	personChunk      = 500
	workChunk        = 500
	attributionChunk = 1000
)

func (s *RankDBStorage) CreateSnapshot(ctx context.Context, snapshotID string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO snapshots (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", snapshotID, err)
	}
	return nil
}

// SavePersons bulk-upserts person records into a snapshot.
func (s *RankDBStorage) SavePersons(ctx context.Context, snapshotID string, persons []snapshot.Person) error {
	return store.ChunkRange(len(persons), personChunk, func(start, end int) error {
		part := persons[start:end]
		logger.Debug("[Store][SavePersons] Saving chunk", "snapshot_id", snapshotID, "persons", len(part))

		ids := make([]string, len(part))
		names := make([]string, len(part))
		births := make([]*time.Time, len(part))
		deaths := make([]*time.Time, len(part))
		occupations := make([]string, len(part))
		for i, p := range part {
			ids[i] = p.ID
			names[i] = p.Name
			births[i] = p.Birth
			deaths[i] = p.Death
			occupations[i] = strings.Join(p.Occupations, ";")
		}

		_, err := s.conn.Exec(ctx, `
			INSERT INTO scholars (snapshot_id, public_id, name, birth_date, death_date, occupations)
			SELECT $1, t.public_id, t.name, t.birth_date, t.death_date,
				COALESCE(string_to_array(NULLIF(t.occupations, ''), ';'), '{}')
			FROM unnest($2::text[], $3::text[], $4::date[], $5::date[], $6::text[])
				AS t(public_id, name, birth_date, death_date, occupations)
			ON CONFLICT (snapshot_id, public_id) DO UPDATE SET
				name = EXCLUDED.name,
				birth_date = EXCLUDED.birth_date,
				death_date = EXCLUDED.death_date,
				occupations = EXCLUDED.occupations
		`, snapshotID, ids, names, births, deaths, occupations)
		if err != nil {
			return fmt.Errorf("failed to save persons: %w", err)
		}
		return nil
	})
}

// SaveWorks bulk-upserts work records and their attribution edges.
func (s *RankDBStorage) SaveWorks(ctx context.Context, snapshotID string, works []snapshot.Work) error {
	err := store.ChunkRange(len(works), workChunk, func(start, end int) error {
		part := works[start:end]
		logger.Debug("[Store][SaveWorks] Saving chunk", "snapshot_id", snapshotID, "works", len(part))

		ids := make([]string, len(part))
		titles := make([]string, len(part))
		descriptions := make([]string, len(part))
		published := make([]*time.Time, len(part))
		for i, w := range part {
			ids[i] = w.ID
			titles[i] = w.Title
			descriptions[i] = w.Description
			published[i] = w.Published
		}

		_, err := s.conn.Exec(ctx, `
			INSERT INTO works (snapshot_id, public_id, title, description, published)
			SELECT $1, t.public_id, t.title, t.description, t.published
			FROM unnest($2::text[], $3::text[], $4::text[], $5::date[])
				AS t(public_id, title, description, published)
			ON CONFLICT (snapshot_id, public_id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				published = EXCLUDED.published
		`, snapshotID, ids, titles, descriptions, published)
		if err != nil {
			return fmt.Errorf("failed to save works: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	type edge struct {
		workID   string
		personID string
		relation string
	}
	edges := make([]edge, 0, len(works))
	for _, w := range works {
		for _, a := range w.Attributions {
			edges = append(edges, edge{workID: w.ID, personID: a.PersonID, relation: string(a.Relation)})
		}
	}

	return store.ChunkRange(len(edges), attributionChunk, func(start, end int) error {
		part := edges[start:end]

		workIDs := make([]string, len(part))
		personIDs := make([]string, len(part))
		relations := make([]string, len(part))
		for i, e := range part {
			workIDs[i] = e.workID
			personIDs[i] = e.personID
			relations[i] = e.relation
		}

		_, err := s.conn.Exec(ctx, `
			INSERT INTO attributions (snapshot_id, work_public_id, person_public_id, relation)
			SELECT $1, t.work_public_id, t.person_public_id, t.relation
			FROM unnest($2::text[], $3::text[], $4::text[])
				AS t(work_public_id, person_public_id, relation)
			ON CONFLICT (snapshot_id, work_public_id, person_public_id) DO UPDATE SET
				relation = EXCLUDED.relation
		`, snapshotID, workIDs, personIDs, relations)
		if err != nil {
			return fmt.Errorf("failed to save attributions: %w", err)
		}
		return nil
	})
}

// LoadSnapshot reads every person, work, and attribution of a snapshot and
// builds a validated snapshot.Snapshot from them.
func (s *RankDBStorage) LoadSnapshot(ctx context.Context, snapshotID string) (*snapshot.Snapshot, []snapshot.Warning, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM snapshots WHERE id = $1)`, snapshotID).Scan(&exists)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check snapshot %s: %w", snapshotID, err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("snapshot %s: %w", snapshotID, store.ErrNotFound)
	}

	persons, err := s.loadPersons(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	works, err := s.loadWorks(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}

	snap, warnings := snapshot.Build(persons, works)
	return snap, warnings, nil
}

func (s *RankDBStorage) loadPersons(ctx context.Context, snapshotID string) ([]snapshot.Person, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, name, birth_date, death_date, occupations
		FROM scholars
		WHERE snapshot_id = $1
		ORDER BY public_id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load persons: %w", err)
	}
	defer rows.Close()

	var persons []snapshot.Person
	for rows.Next() {
		var p snapshot.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Birth, &p.Death, &p.Occupations); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

func (s *RankDBStorage) loadWorks(ctx context.Context, snapshotID string) ([]snapshot.Work, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, title, description, published
		FROM works
		WHERE snapshot_id = $1
		ORDER BY public_id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load works: %w", err)
	}
	defer rows.Close()

	works := make([]snapshot.Work, 0)
	idx := make(map[string]int)
	for rows.Next() {
		var w snapshot.Work
		if err := rows.Scan(&w.ID, &w.Title, &w.Description, &w.Published); err != nil {
			return nil, fmt.Errorf("failed to scan work: %w", err)
		}
		idx[w.ID] = len(works)
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	attrRows, err := s.conn.Query(ctx, `
		SELECT work_public_id, person_public_id, relation
		FROM attributions
		WHERE snapshot_id = $1
		ORDER BY work_public_id, person_public_id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributions: %w", err)
	}
	defer attrRows.Close()

	for attrRows.Next() {
		var workID, personID, relation string
		if err := attrRows.Scan(&workID, &personID, &relation); err != nil {
			return nil, fmt.Errorf("failed to scan attribution: %w", err)
		}
		i, ok := idx[workID]
		if !ok {
			continue
		}
		works[i].Attributions = append(works[i].Attributions, snapshot.Attribution{
			PersonID: personID,
			Relation: snapshot.AttributionType(relation),
		})
	}
	return works, attrRows.Err()
}

func (s *RankDBStorage) ListSnapshots(ctx context.Context) ([]store.SnapshotInfo, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT s.id,
			(SELECT count(*) FROM scholars WHERE snapshot_id = s.id),
			(SELECT count(*) FROM works WHERE snapshot_id = s.id),
			s.created_at
		FROM snapshots s
		ORDER BY s.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []store.SnapshotInfo
	for rows.Next() {
		var info store.SnapshotInfo
		if err := rows.Scan(&info.ID, &info.PersonCount, &info.WorkCount, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *RankDBStorage) GetPerson(ctx context.Context, snapshotID, personID string) (snapshot.Person, error) {
	var p snapshot.Person
	err := s.conn.QueryRow(ctx, `
		SELECT public_id, name, birth_date, death_date, occupations
		FROM scholars
		WHERE snapshot_id = $1 AND public_id = $2
	`, snapshotID, personID).Scan(&p.ID, &p.Name, &p.Birth, &p.Death, &p.Occupations)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return snapshot.Person{}, fmt.Errorf("person %s in snapshot %s: %w", personID, snapshotID, store.ErrNotFound)
	}
	if err != nil {
		return snapshot.Person{}, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

func (s *RankDBStorage) IsOccupationCrawled(ctx context.Context, snapshotID, occupationID string) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM crawled_occupations
			WHERE snapshot_id = $1 AND occupation_id = $2
		)
	`, snapshotID, occupationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check crawled occupation: %w", err)
	}
	return exists, nil
}

func (s *RankDBStorage) MarkOccupationCrawled(ctx context.Context, snapshotID, occupationID string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO crawled_occupations (snapshot_id, occupation_id)
		VALUES ($1, $2)
		ON CONFLICT (snapshot_id, occupation_id) DO NOTHING
	`, snapshotID, occupationID)
	if err != nil {
		return fmt.Errorf("failed to mark occupation crawled: %w", err)
	}
	return nil
}
