package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	name      string
	available bool
	results   []Result
	err       error
	calls     int
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }

func (s *stubProvider) Search(_ context.Context, _ string) ([]Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	first := &stubProvider{name: "perplexity", available: true, results: []Result{{Title: "a", Content: "x"}}}
	second := &stubProvider{name: "tavily", available: true, results: []Result{{Title: "b"}}}

	chain := NewChain(first, second)

	got, err := chain.SearchMathSolution(context.Background(), "solve x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Source != "perplexity" {
		t.Errorf("source = %q, want perplexity", got.Source)
	}
	if second.calls != 0 {
		t.Error("second provider must not be tried after a success")
	}
}

func TestChainFallsThroughFailures(t *testing.T) {
	tests := []struct {
		name        string
		providers   []*stubProvider
		wantSource  string
		wantErr     bool
		wantCallSeq []int
	}{
		{
			name: "error then success",
			providers: []*stubProvider{
				{name: "perplexity", available: true, err: errors.New("401")},
				{name: "tavily", available: true, results: []Result{{Title: "t"}}},
				{name: "duckduckgo", available: true},
			},
			wantSource:  "tavily",
			wantCallSeq: []int{1, 1, 0},
		},
		{
			name: "unavailable providers skipped without calling",
			providers: []*stubProvider{
				{name: "perplexity", available: false},
				{name: "tavily", available: false},
				{name: "duckduckgo", available: true, results: []Result{{Title: "d"}}},
			},
			wantSource:  "duckduckgo",
			wantCallSeq: []int{0, 0, 1},
		},
		{
			name: "all fail",
			providers: []*stubProvider{
				{name: "perplexity", available: true, err: errors.New("down")},
				{name: "tavily", available: true, err: errors.New("down")},
				{name: "duckduckgo", available: true, err: errors.New("down")},
			},
			wantErr:     true,
			wantCallSeq: []int{1, 1, 1},
		},
		{
			name: "nothing configured",
			providers: []*stubProvider{
				{name: "perplexity", available: false},
				{name: "tavily", available: false},
			},
			wantErr:     true,
			wantCallSeq: []int{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers := make([]Provider, len(tt.providers))
			for i, p := range tt.providers {
				providers[i] = p
			}
			chain := NewChain(providers...)

			got, err := chain.SearchMathSolution(context.Background(), "solve x")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Source != tt.wantSource {
					t.Errorf("source = %q, want %q", got.Source, tt.wantSource)
				}
			}

			for i, want := range tt.wantCallSeq {
				if tt.providers[i].calls != want {
					t.Errorf("provider %s called %d times, want %d",
						tt.providers[i].name, tt.providers[i].calls, want)
				}
			}
		})
	}
}

func TestExtractSolutionContent(t *testing.T) {
	chain := NewChain()

	t.Run("empty results", func(t *testing.T) {
		got := chain.ExtractSolutionContent(nil, "tavily")
		if got != "No relevant solutions found online." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("perplexity passes through", func(t *testing.T) {
		got := chain.ExtractSolutionContent([]Result{
			{Title: "Perplexity Mathematical Solution", Content: "x equals two"},
		}, "perplexity")

		if !strings.Contains(got, "**Perplexity AI Response:**") {
			t.Error("missing perplexity header")
		}
		if !strings.Contains(got, "x equals two") {
			t.Error("missing content")
		}
	})

	t.Run("other providers capped at two sources", func(t *testing.T) {
		got := chain.ExtractSolutionContent([]Result{
			{Title: "One", URL: "https://a", Content: "first"},
			{Title: "Two", URL: "https://b", Content: "second"},
			{Title: "Three", URL: "https://c", Content: "third"},
		}, "duckduckgo")

		if !strings.Contains(got, "**Source 1: One**") || !strings.Contains(got, "**Source 2: Two**") {
			t.Error("missing expected source blocks")
		}
		if strings.Contains(got, "Three") || strings.Contains(got, "third") {
			t.Error("third result must be dropped")
		}
		if !strings.Contains(got, "URL: https://a") {
			t.Error("missing URL line")
		}
	})

	t.Run("blank fields get placeholders", func(t *testing.T) {
		got := chain.ExtractSolutionContent([]Result{{}}, "tavily")

		if !strings.Contains(got, "**Source 1: Unknown**") {
			t.Error("missing title placeholder")
		}
		if !strings.Contains(got, "Content: No content available") {
			t.Error("missing content placeholder")
		}
		if strings.Contains(got, "URL:") {
			t.Error("blank URL must be omitted")
		}
	})
}
