package rank

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// WriteCSV serializes ranked entries as tabular rows sorted by rank, one per
// person, with a header row. This is the contract consumed by the downstream
// reporting layer.
func WriteCSV(w io.Writer, entries []RankedEntry) error {
	cw := csv.NewWriter(w)
	header := []string{
		"person_id", "rank", "fused_score",
		"semantic_score", "graph_score", "temporal_score",
		"imputed_signals",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, e := range entries {
		row := []string{
			e.PersonID,
			strconv.Itoa(e.Rank),
			formatScore(e.FusedScore),
			formatScore(e.SemanticScore),
			formatScore(e.GraphScore),
			formatScore(e.TemporalScore),
			strings.Join(e.ImputedSignals, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 9, 64)
}
