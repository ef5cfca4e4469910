package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/wisslab/wissrank/pkg/ai"
)

type fakeEmbedStorage struct {
	RankStorage
	vectors map[string][]float32
	saves   int
}

func newFakeEmbedStorage() *fakeEmbedStorage {
	return &fakeEmbedStorage{vectors: make(map[string][]float32)}
}

func (f *fakeEmbedStorage) GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	for _, h := range hashes {
		if vec, ok := f.vectors[h]; ok {
			out[h] = vec
		}
	}
	return out, nil
}

func (f *fakeEmbedStorage) SaveEmbeddings(ctx context.Context, model string, hashes []string, vectors [][]float32) error {
	f.saves++
	for i, h := range hashes {
		f.vectors[h] = vectors[i]
	}
	return nil
}

type countingEmbedder struct {
	calls  int
	inputs int
}

func (e *countingEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	vecs, err := e.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *countingEmbedder) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	e.calls++
	e.inputs += len(inputs)
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in)), 1}
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int             { return 2 }
func (e *countingEmbedder) ResetMetrics()               {}
func (e *countingEmbedder) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestCachedEmbedderCachesMisses(t *testing.T) {
	storage := newFakeEmbedStorage()
	backend := &countingEmbedder{}

	cache, err := NewCachedEmbedder(NewCachedEmbedderParams{
		Inner:   backend,
		Storage: storage,
		Model:   "test-model",
	})
	if err != nil {
		t.Fatalf("NewCachedEmbedder() error: %v", err)
	}

	ctx := context.Background()
	inputs := [][]byte{[]byte("faraday"), []byte("maxwell")}

	first, err := cache.GenerateEmbeddings(ctx, inputs)
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error: %v", err)
	}
	if backend.inputs != 2 {
		t.Fatalf("backend embedded %d inputs, want 2", backend.inputs)
	}

	// Same inputs again: all served from cache, backend untouched.
	second, err := cache.GenerateEmbeddings(ctx, inputs)
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error: %v", err)
	}
	if backend.inputs != 2 {
		t.Fatalf("backend embedded %d inputs after cache hit, want still 2", backend.inputs)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("cached vectors differ from originally embedded ones")
	}
}

func TestCachedEmbedderDeduplicatesWithinBatch(t *testing.T) {
	storage := newFakeEmbedStorage()
	backend := &countingEmbedder{}

	cache, err := NewCachedEmbedder(NewCachedEmbedderParams{
		Inner:   backend,
		Storage: storage,
		Model:   "test-model",
	})
	if err != nil {
		t.Fatalf("NewCachedEmbedder() error: %v", err)
	}

	vecs, err := cache.GenerateEmbeddings(context.Background(), [][]byte{
		[]byte("faraday"), []byte("faraday"), []byte("maxwell"),
	})
	if err != nil {
		t.Fatalf("GenerateEmbeddings() error: %v", err)
	}
	if backend.inputs != 2 {
		t.Fatalf("backend embedded %d inputs, want 2 (duplicate collapsed)", backend.inputs)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	if !reflect.DeepEqual(vecs[0], vecs[1]) {
		t.Fatal("duplicate inputs received different vectors")
	}
}

func TestNewCachedEmbedderRejectsMissingParams(t *testing.T) {
	storage := newFakeEmbedStorage()
	backend := &countingEmbedder{}

	tests := []struct {
		name   string
		params NewCachedEmbedderParams
	}{
		{"missing inner", NewCachedEmbedderParams{Storage: storage, Model: "m"}},
		{"missing storage", NewCachedEmbedderParams{Inner: backend, Model: "m"}},
		{"missing model", NewCachedEmbedderParams{Inner: backend, Storage: storage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCachedEmbedder(tt.params); err == nil {
				t.Fatal("NewCachedEmbedder() succeeded, want error")
			}
		})
	}
}
