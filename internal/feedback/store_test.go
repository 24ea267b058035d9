package feedback

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/math-agent/backend/internal/storage/models"
)

func TestAppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	store := NewStore(path)

	entries := []models.FeedbackEntry{
		{
			Timestamp:        time.Now().UTC().Truncate(time.Second),
			Query:            "Solve x^2 = 4",
			OriginalSolution: "x = ±2",
			RefinedSolution:  "x = ±2",
			Feedback:         "great",
			Rating:           5,
		},
		{
			Timestamp:        time.Now().UTC().Truncate(time.Second),
			Query:            "Integrate sin(x)",
			OriginalSolution: "-cos(x) + C",
			RefinedSolution:  "simplified version",
			Feedback:         "too terse",
			Rating:           2,
		},
	}

	for _, e := range entries {
		if err := store.Append(e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("loaded %d entries, want %d", len(got), len(entries))
	}

	for i, want := range entries {
		if got[i].Query != want.Query || got[i].Rating != want.Rating ||
			got[i].RefinedSolution != want.RefinedSolution {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.jsonl"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	content := `{"query":"q1","rating":4}
this line is not json
{"query":"q2","rating":1}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(got))
	}
	if got[0].Query != "q1" || got[1].Query != "q2" {
		t.Errorf("entries = %+v", got)
	}
}

func TestAppendCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "feedback.jsonl")
	store := NewStore(path)

	if err := store.Append(models.FeedbackEntry{Query: "q", Rating: 3}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	store := NewStore(path)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			err := store.Append(models.FeedbackEntry{
				Query:  fmt.Sprintf("query %d", i),
				Rating: 1 + i%5,
			})
			if err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != n {
		t.Errorf("loaded %d entries, want %d (interleaved writes?)", len(got), n)
	}
}
