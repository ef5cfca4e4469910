package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wisslab/wissrank/pkg/snapshot"
	"github.com/wisslab/wissrank/pkg/store"
	"github.com/wisslab/wissrank/pkg/wikidata"
)

type fakeCrawlStorage struct {
	store.RankStorage

	snapshots []string
	crawled   map[string]bool
	persons   []snapshot.Person
	works     []snapshot.Work
}

func (f *fakeCrawlStorage) CreateSnapshot(ctx context.Context, snapshotID string) error {
	f.snapshots = append(f.snapshots, snapshotID)
	return nil
}

func (f *fakeCrawlStorage) SavePersons(ctx context.Context, snapshotID string, persons []snapshot.Person) error {
	f.persons = append(f.persons, persons...)
	return nil
}

func (f *fakeCrawlStorage) SaveWorks(ctx context.Context, snapshotID string, works []snapshot.Work) error {
	f.works = append(f.works, works...)
	return nil
}

func (f *fakeCrawlStorage) IsOccupationCrawled(ctx context.Context, snapshotID, occupationID string) (bool, error) {
	return f.crawled[occupationID], nil
}

func (f *fakeCrawlStorage) MarkOccupationCrawled(ctx context.Context, snapshotID, occupationID string) error {
	if f.crawled == nil {
		f.crawled = make(map[string]bool)
	}
	f.crawled[occupationID] = true
	return nil
}

// crawlFixtureServer serves canned SPARQL responses: person pages for the
// people query, author rows for the works query, empty otherwise.
func crawlFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	peoplePagesServed := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		q := r.Form.Get("query")

		switch {
		case strings.Contains(q, "wdt:P106"): // people by occupation
			peoplePagesServed++
			if peoplePagesServed > 1 {
				fmt.Fprint(w, `{"results":{"bindings":[]}}`)
				return
			}
			fmt.Fprint(w, `{"results":{"bindings":[
				{"person":{"type":"uri","value":"http://www.wikidata.org/entity/Q1"},
				 "personLabel":{"type":"literal","value":"Ada Prolific"},
				 "birth":{"type":"literal","value":"+1820-05-01T00:00:00Z"},
				 "occLabel":{"type":"literal","value":"physicist"}}
			]}}`)
		case strings.Contains(q, "VALUES ?person"): // works by people
			fmt.Fprint(w, `{"results":{"bindings":[
				{"person":{"type":"uri","value":"http://www.wikidata.org/entity/Q1"},
				 "work":{"type":"uri","value":"http://www.wikidata.org/entity/W1"},
				 "workLabel":{"type":"literal","value":"On Physics"}}
			]}}`)
		default:
			fmt.Fprint(w, `{"results":{"bindings":[]}}`)
		}
	}))
}

func crawlTestClient(url string) *wikidata.Client {
	return wikidata.NewClient(wikidata.NewClientParams{
		Endpoint:  url,
		PageSize:  10,
		PageDelay: time.Millisecond,
	})
}

func TestProcessCrawlMessageStoresOccupation(t *testing.T) {
	srv := crawlFixtureServer(t)
	defer srv.Close()

	storage := &fakeCrawlStorage{}
	msg, _ := json.Marshal(QueueCrawlMsg{
		Message:     "crawl",
		SnapshotID:  "snap-1",
		Occupations: []string{"Q169470"},
	})

	err := ProcessCrawlMessage(context.Background(), crawlTestClient(srv.URL), storage, string(msg))
	if err != nil {
		t.Fatalf("ProcessCrawlMessage() error: %v", err)
	}

	if len(storage.snapshots) != 1 || storage.snapshots[0] != "snap-1" {
		t.Fatalf("snapshots created = %v, want [snap-1]", storage.snapshots)
	}
	if len(storage.persons) != 1 || storage.persons[0].ID != "Q1" {
		t.Fatalf("persons saved = %v, want Q1", storage.persons)
	}
	if len(storage.works) != 1 || storage.works[0].ID != "W1" {
		t.Fatalf("works saved = %v, want W1", storage.works)
	}
	if !storage.crawled["Q169470"] {
		t.Fatal("occupation was not checkpointed")
	}
}

func TestProcessCrawlMessageDropsOutOfEraPersons(t *testing.T) {
	peoplePagesServed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		q := r.Form.Get("query")

		switch {
		case strings.Contains(q, "wdt:P106"):
			peoplePagesServed++
			if peoplePagesServed > 1 {
				fmt.Fprint(w, `{"results":{"bindings":[]}}`)
				return
			}
			// Q1 lives into the era; Q2 died before it began.
			fmt.Fprint(w, `{"results":{"bindings":[
				{"person":{"type":"uri","value":"http://www.wikidata.org/entity/Q1"},
				 "personLabel":{"type":"literal","value":"Ada Prolific"},
				 "birth":{"type":"literal","value":"+1820-05-01T00:00:00Z"},
				 "occLabel":{"type":"literal","value":"physicist"}},
				{"person":{"type":"uri","value":"http://www.wikidata.org/entity/Q2"},
				 "personLabel":{"type":"literal","value":"Elder Ancestor"},
				 "birth":{"type":"literal","value":"+1700-01-01T00:00:00Z"},
				 "death":{"type":"literal","value":"+1780-01-01T00:00:00Z"},
				 "occLabel":{"type":"literal","value":"physicist"}}
			]}}`)
		case strings.Contains(q, "VALUES ?person"):
			fmt.Fprint(w, `{"results":{"bindings":[
				{"person":{"type":"uri","value":"http://www.wikidata.org/entity/Q1"},
				 "work":{"type":"uri","value":"http://www.wikidata.org/entity/W1"},
				 "workLabel":{"type":"literal","value":"On Physics"}},
				{"person":{"type":"uri","value":"http://www.wikidata.org/entity/Q2"},
				 "work":{"type":"uri","value":"http://www.wikidata.org/entity/W2"},
				 "workLabel":{"type":"literal","value":"Old Almanac"}}
			]}}`)
		default:
			fmt.Fprint(w, `{"results":{"bindings":[]}}`)
		}
	}))
	defer srv.Close()

	storage := &fakeCrawlStorage{}
	msg, _ := json.Marshal(QueueCrawlMsg{
		SnapshotID:  "snap-1",
		Occupations: []string{"Q169470"},
	})

	err := ProcessCrawlMessage(context.Background(), crawlTestClient(srv.URL), storage, string(msg))
	if err != nil {
		t.Fatalf("ProcessCrawlMessage() error: %v", err)
	}

	if len(storage.persons) != 1 || storage.persons[0].ID != "Q1" {
		t.Fatalf("persons saved = %v, want only Q1", storage.persons)
	}
	if len(storage.works) != 1 || storage.works[0].ID != "W1" {
		t.Fatalf("works saved = %v, want only W1", storage.works)
	}
	for _, w := range storage.works {
		for _, a := range w.Attributions {
			if a.PersonID == "Q2" {
				t.Fatalf("work %s kept an edge to the dropped person", w.ID)
			}
		}
	}
}

func TestProcessCrawlMessageSkipsCheckpointedOccupation(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"results":{"bindings":[]}}`)
	}))
	defer srv.Close()

	storage := &fakeCrawlStorage{crawled: map[string]bool{"Q169470": true}}
	msg, _ := json.Marshal(QueueCrawlMsg{
		SnapshotID:  "snap-1",
		Occupations: []string{"Q169470"},
	})

	err := ProcessCrawlMessage(context.Background(), crawlTestClient(srv.URL), storage, string(msg))
	if err != nil {
		t.Fatalf("ProcessCrawlMessage() error: %v", err)
	}
	if requests != 0 {
		t.Fatalf("endpoint saw %d requests, want 0 for a checkpointed occupation", requests)
	}
	if len(storage.persons) != 0 {
		t.Fatalf("persons saved = %v, want none", storage.persons)
	}
}

func TestProcessCrawlMessageRejectsMissingSnapshotID(t *testing.T) {
	err := ProcessCrawlMessage(context.Background(), crawlTestClient("http://unused"), &fakeCrawlStorage{}, `{"message":"crawl"}`)
	if err == nil {
		t.Fatal("ProcessCrawlMessage() accepted a message without snapshot_id")
	}
}
