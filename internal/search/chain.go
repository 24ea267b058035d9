package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/metrics"
	"github.com/math-agent/backend/pkg/logger"
)

// Result is the normalized shape every provider reduces its response to.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider is one web-search backend. Search must honor ctx cancellation and
// return an error rather than partial results on failure.
type Provider interface {
	Name() string
	Available() bool
	Search(ctx context.Context, query string) ([]Result, error)
}

// ChainResult carries the first successful provider's results plus its
// provenance tag.
type ChainResult struct {
	Results []Result
	Source  string
}

// Chain tries providers strictly in priority order; the first success
// short-circuits. Unconfigured providers are skipped.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) SearchMathSolution(ctx context.Context, query string) (*ChainResult, error) {
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}

		logger.Info("Trying search provider", zap.String("provider", p.Name()))

		results, err := p.Search(ctx, query)
		if err != nil {
			metrics.SearchProviderAttempts.WithLabelValues(p.Name(), "failure").Inc()
			logger.Warn("Search provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}

		metrics.SearchProviderAttempts.WithLabelValues(p.Name(), "success").Inc()
		logger.Info("Search provider succeeded",
			zap.String("provider", p.Name()),
			zap.Int("results", len(results)),
		)

		return &ChainResult{
			Results: results,
			Source:  p.Name(),
		}, nil
	}

	return nil, fmt.Errorf("all search providers exhausted")
}

// ExtractSolutionContent flattens results into prompt context. Perplexity
// already returns synthesized prose, so its content passes through directly;
// other providers contribute up to two labeled source blocks.
func (c *Chain) ExtractSolutionContent(results []Result, source string) string {
	if len(results) == 0 {
		return "No relevant solutions found online."
	}

	if source == "perplexity" {
		return fmt.Sprintf("**Perplexity AI Response:**\n\n%s\n", results[0].Content)
	}

	var b strings.Builder
	b.WriteString("Based on online resources, here are some hints and reasoning steps:\n\n")

	for i, r := range results {
		if i >= 2 {
			break
		}

		title := r.Title
		if title == "" {
			title = "Unknown"
		}
		content := r.Content
		if content == "" {
			content = "No content available"
		}

		b.WriteString(fmt.Sprintf("**Source %d: %s**\n", i+1, title))
		if r.URL != "" {
			b.WriteString(fmt.Sprintf("URL: %s\n", r.URL))
		}
		b.WriteString(fmt.Sprintf("Content: %s\n\n", content))
	}

	return b.String()
}
