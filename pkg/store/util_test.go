package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestChunkRange(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		chunkSize int
		want      [][2]int
	}{
		{"empty", 0, 10, nil},
		{"single chunk", 5, 10, [][2]int{{0, 5}}},
		{"exact chunks", 10, 5, [][2]int{{0, 5}, {5, 10}}},
		{"remainder", 7, 3, [][2]int{{0, 3}, {3, 6}, {6, 7}}},
		{"zero chunk size means one chunk", 4, 0, [][2]int{{0, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			err := ChunkRange(tt.total, tt.chunkSize, func(start, end int) error {
				got = append(got, [2]int{start, end})
				return nil
			})
			if err != nil {
				t.Fatalf("ChunkRange() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ChunkRange() chunks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkRangeStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := ChunkRange(10, 2, func(start, end int) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ChunkRange() error = %v, want boom", err)
	}
	if calls != 2 {
		t.Fatalf("ChunkRange() made %d calls after error, want 2", calls)
	}
}

func TestDedupeStrings(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"drops empties", []string{"", "a", ""}, []string{"a"}},
		{"keeps first occurrence order", []string{"b", "a", "b", "a"}, []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DedupeStrings(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DedupeStrings(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHashTextStable(t *testing.T) {
	a := HashText("faraday")
	b := HashText("faraday")
	if a != b {
		t.Fatalf("HashText not stable: %s vs %s", a, b)
	}
	if a == HashText("maxwell") {
		t.Fatal("HashText collides on distinct inputs")
	}
	if len(a) != 64 {
		t.Fatalf("HashText length = %d, want 64 hex chars", len(a))
	}
}
