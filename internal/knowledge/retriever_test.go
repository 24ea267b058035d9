package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/math-agent/backend/internal/storage/models"
)

type fakeIndex struct {
	matches  []Match
	err      error
	upserted []Point
}

func (f *fakeIndex) Upsert(_ context.Context, points []Point) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeIndex) SearchNearest(_ context.Context, _ []float32, _ int) ([]Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func TestSearchThreshold(t *testing.T) {
	record := models.KnowledgeRecord{Question: "Solve x^2 = 4", Solution: "x = ±2"}

	tests := []struct {
		name      string
		score     float32
		threshold float64
		wantFound bool
	}{
		{"above threshold", 0.85, 0.7, true},
		{"exactly at threshold", 0.7, 0.7, true},
		{"below threshold", 0.69, 0.7, false},
		{"custom threshold", 0.75, 0.8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndex{matches: []Match{{Record: record, Score: tt.score}}}
			r := NewRetriever(index, &fakeEmbedder{}, tt.threshold)

			got, err := r.Search(context.Background(), "solve x^2 = 4")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Found != tt.wantFound {
				t.Fatalf("Found = %v, want %v", got.Found, tt.wantFound)
			}
			if tt.wantFound {
				if got.Confidence != float64(tt.score) {
					t.Errorf("Confidence = %v, want %v", got.Confidence, tt.score)
				}
				if got.Record.Question != record.Question {
					t.Errorf("Record = %+v", got.Record)
				}
			} else if got.Confidence != 0 {
				t.Errorf("miss must carry zero confidence, got %v", got.Confidence)
			}
		})
	}
}

type fakeEmbeddingCache struct {
	vectors map[string][]float32
	getErr  error
	sets    int
}

func (f *fakeEmbeddingCache) GetEmbedding(_ context.Context, hash string) ([]float32, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.vectors[hash]
	return v, ok, nil
}

func (f *fakeEmbeddingCache) SetEmbedding(_ context.Context, hash string, v []float32, _ time.Duration) error {
	if f.vectors == nil {
		f.vectors = map[string][]float32{}
	}
	f.vectors[hash] = v
	f.sets++
	return nil
}

func TestSearchReusesCachedEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := &fakeEmbeddingCache{}
	r := NewRetriever(&fakeIndex{}, embedder, 0.7, WithEmbeddingCache(cache, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := r.Search(context.Background(), "solve x^2 = 4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1 (repeat queries must hit the cache)", embedder.calls)
	}
	if cache.sets != 1 {
		t.Errorf("cache stored %d vectors, want 1", cache.sets)
	}
}

func TestSearchDistinctQueriesEmbedSeparately(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := &fakeEmbeddingCache{}
	r := NewRetriever(&fakeIndex{}, embedder, 0.7, WithEmbeddingCache(cache, time.Minute))

	for _, query := range []string{"solve x^2 = 4", "integrate sin(x)"} {
		if _, err := r.Search(context.Background(), query); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if embedder.calls != 2 {
		t.Errorf("embedder called %d times, want 2", embedder.calls)
	}
}

func TestSearchEmbeddingCacheFailureFallsBack(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := &fakeEmbeddingCache{getErr: errors.New("redis down")}
	r := NewRetriever(&fakeIndex{}, embedder, 0.7, WithEmbeddingCache(cache, time.Minute))

	got, err := r.Search(context.Background(), "solve x^2 = 4")
	if err != nil {
		t.Fatalf("cache failure must not fail the search: %v", err)
	}
	if got.Found {
		t.Error("empty index must still be a miss")
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.calls)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, 0.7)

	got, err := r.Search(context.Background(), "solve x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Found {
		t.Error("empty index must be a miss")
	}
}

func TestSearchErrors(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		r := NewRetriever(&fakeIndex{}, &fakeEmbedder{err: errors.New("api down")}, 0.7)
		if _, err := r.Search(context.Background(), "solve x"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("index failure", func(t *testing.T) {
		r := NewRetriever(&fakeIndex{err: errors.New("db down")}, &fakeEmbedder{}, 0.7)
		if _, err := r.Search(context.Background(), "solve x"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestIndexRecordsDefaults(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(index, &fakeEmbedder{}, 0.7)

	records := []models.KnowledgeRecord{
		{Question: "q1", Solution: "s1"},
		{Question: "q2", Solution: "s2", Topic: "algebra", Difficulty: "hard"},
	}

	if err := r.IndexRecords(context.Background(), records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(index.upserted) != 2 {
		t.Fatalf("upserted %d points, want 2", len(index.upserted))
	}
	if index.upserted[0].Record.Topic != "general" || index.upserted[0].Record.Difficulty != "medium" {
		t.Errorf("blank metadata not defaulted: %+v", index.upserted[0].Record)
	}
	if index.upserted[1].Record.Topic != "algebra" || index.upserted[1].Record.Difficulty != "hard" {
		t.Errorf("explicit metadata overwritten: %+v", index.upserted[1].Record)
	}
	if index.upserted[0].ID == "" || index.upserted[0].ID == index.upserted[1].ID {
		t.Error("points must get distinct non-empty IDs")
	}
}

func TestIndexRecordsEmptyIsNoop(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(index, &fakeEmbedder{err: errors.New("must not be called")}, 0.7)

	if err := r.IndexRecords(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(index.upserted) != 0 {
		t.Error("no points expected")
	}
}

func TestInitializeMissingDatasetIsNotFatal(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, 0.7)

	if err := r.Initialize(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Errorf("missing dataset must not fail startup: %v", err)
	}
}

func TestInitializeCorruptDatasetIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRetriever(&fakeIndex{}, &fakeEmbedder{}, 0.7)
	if err := r.Initialize(context.Background(), path); err != nil {
		t.Errorf("corrupt dataset must not fail startup: %v", err)
	}
}

func TestInitializeLoadsDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	payload := `[{"question":"Solve x^2 = 4","solution":"x = ±2","topic":"algebra","difficulty":"easy"}]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	index := &fakeIndex{}
	r := NewRetriever(index, &fakeEmbedder{}, 0.7)

	if err := r.Initialize(context.Background(), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(index.upserted) != 1 {
		t.Fatalf("upserted %d points, want 1", len(index.upserted))
	}
	if index.upserted[0].Record.Question != "Solve x^2 = 4" {
		t.Errorf("record = %+v", index.upserted[0].Record)
	}
}
