package rank

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	entries := []RankedEntry{
		{PersonID: "Q1", Rank: 1, FusedScore: 1, SemanticScore: 1, GraphScore: 1, TemporalScore: 1},
		{PersonID: "Q2", Rank: 2, FusedScore: 1.0 / 3.0, SemanticScore: 0.5, GraphScore: 0, TemporalScore: 0.5,
			ImputedSignals: []string{SignalSemantic, SignalTemporal}},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back written csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header plus 2 entries", len(records))
	}

	header := strings.Join(records[0], ",")
	want := "person_id,rank,fused_score,semantic_score,graph_score,temporal_score,imputed_signals"
	if header != want {
		t.Fatalf("header = %q, want %q", header, want)
	}

	if records[1][0] != "Q1" || records[1][1] != "1" {
		t.Errorf("first row = %v, want person Q1 at rank 1", records[1])
	}
	if records[2][6] != "semantic;temporal" {
		t.Errorf("imputed column = %q, want %q", records[2][6], "semantic;temporal")
	}
	if !strings.HasPrefix(records[2][2], "0.333333333") {
		t.Errorf("fused column = %q, want 9-digit fixed point of 1/3", records[2][2])
	}
}
