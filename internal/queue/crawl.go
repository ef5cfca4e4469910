package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/snapshot"
	"github.com/wisslab/wissrank/pkg/store"
	"github.com/wisslab/wissrank/pkg/wikidata"
)

func ProcessCrawlMessage(
	ctx context.Context,
	client *wikidata.Client,
	storage store.RankStorage,
	msg string,
) error {
	var data QueueCrawlMsg
	if err := json.Unmarshal([]byte(msg), &data); err != nil {
		return err
	}
	if data.SnapshotID == "" {
		return fmt.Errorf("crawl message is missing snapshot_id")
	}

	if err := storage.CreateSnapshot(ctx, data.SnapshotID); err != nil {
		return err
	}

	var occupations []wikidata.Occupation
	if len(data.Occupations) > 0 {
		for _, id := range data.Occupations {
			occupations = append(occupations, wikidata.Occupation{ID: id})
		}
	} else {
		discovered, err := client.Occupations(ctx)
		if err != nil {
			return err
		}
		occupations = discovered
	}
	logger.Info("[Queue] Starting crawl", "snapshot_id", data.SnapshotID, "occupations", len(occupations))

	for _, occ := range occupations {
		crawled, err := storage.IsOccupationCrawled(ctx, data.SnapshotID, occ.ID)
		if err != nil {
			return err
		}
		if crawled {
			logger.Debug("[Queue] Skipping crawled occupation", "snapshot_id", data.SnapshotID, "occupation", occ.ID)
			continue
		}

		persons, notable, err := client.PeopleByOccupation(ctx, occ)
		if err != nil {
			return err
		}
		persons = wikidata.FilterEra(persons)
		if len(persons) == 0 {
			if err := storage.MarkOccupationCrawled(ctx, data.SnapshotID, occ.ID); err != nil {
				return err
			}
			continue
		}

		personIDs := make([]string, 0, len(persons))
		kept := make(map[string]struct{}, len(persons))
		for _, p := range persons {
			personIDs = append(personIDs, p.ID)
			kept[p.ID] = struct{}{}
		}
		authored, err := client.WorksByPeople(ctx, personIDs)
		if err != nil {
			return err
		}
		works := pruneAttributions(wikidata.MergeWorks(authored, notable), kept)

		if err := storage.SavePersons(ctx, data.SnapshotID, persons); err != nil {
			return err
		}
		if err := storage.SaveWorks(ctx, data.SnapshotID, works); err != nil {
			return err
		}
		if err := storage.MarkOccupationCrawled(ctx, data.SnapshotID, occ.ID); err != nil {
			return err
		}

		logger.Info("[Queue] Stored occupation", "snapshot_id", data.SnapshotID, "occupation", occ.ID, "persons", len(persons), "works", len(works))
	}

	return nil
}

// pruneAttributions drops edges to people the era filter removed and discards
// works left without any attribution.
func pruneAttributions(works []snapshot.Work, kept map[string]struct{}) []snapshot.Work {
	out := make([]snapshot.Work, 0, len(works))
	for _, w := range works {
		edges := make([]snapshot.Attribution, 0, len(w.Attributions))
		for _, a := range w.Attributions {
			if _, ok := kept[a.PersonID]; ok {
				edges = append(edges, a)
			}
		}
		if len(edges) == 0 {
			continue
		}
		w.Attributions = edges
		out = append(out, w)
	}
	return out
}
