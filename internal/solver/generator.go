package solver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/llm"
	"github.com/math-agent/backend/internal/search"
	"github.com/math-agent/backend/pkg/logger"
)

const professorSystemPrompt = `You are an expert mathematics professor. Provide complete, detailed step-by-step solutions to mathematical problems.

IMPORTANT: Always include:
1. Problem identification and approach
2. All mathematical steps with clear explanations
3. Intermediate calculations shown
4. Final answer clearly stated
5. Verification when applicable

Use proper mathematical notation and be thorough.`

const synthesisSystemPrompt = `You are a mathematics expert. Using the provided search results, create a complete step-by-step solution to the mathematical problem.

Extract the relevant mathematical information from the search results and present it as a clear, organized solution with:
1. Problem analysis
2. Step-by-step solution process
3. All calculations shown
4. Final answer
5. Verification if possible`

// TextGenerator is the generation backend. Satisfied by the llm client; nil
// means no generation provider is configured.
type TextGenerator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Generator synthesizes a step-by-step solution from whatever source is
// available: primary generation, search-backed generation, or a deterministic
// template. Every stage except the template is gated by the completeness
// policy.
type Generator struct {
	primary  TextGenerator
	fallback []search.Provider
	fastMode bool
	complete CompletenessPolicy
}

type Option func(*Generator)

// WithFallbackProviders sets the search providers tried by the secondary and
// tertiary search-backed stages, in order.
func WithFallbackProviders(providers ...search.Provider) Option {
	return func(g *Generator) {
		g.fallback = providers
	}
}

// WithFastMode skips the search-backed stages to bound latency.
func WithFastMode(fast bool) Option {
	return func(g *Generator) {
		g.fastMode = fast
	}
}

// WithCompletenessPolicy overrides the acceptance gate between stages.
func WithCompletenessPolicy(policy CompletenessPolicy) Option {
	return func(g *Generator) {
		g.complete = policy
	}
}

func NewGenerator(primary TextGenerator, opts ...Option) *Generator {
	g := &Generator{
		primary:  primary,
		fastMode: true,
		complete: DefaultCompleteness,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateStepByStep produces a formatted solution for the query. webContent,
// when non-empty, is extracted search context handed down by the router. The
// templated last stage guarantees a non-empty result; this method cannot fail.
func (g *Generator) GenerateStepByStep(ctx context.Context, query, webContent string) string {
	if g.primary != nil {
		solution, err := g.generatePrimary(ctx, query, webContent)
		if err != nil {
			logger.Warn("Primary generation failed", zap.Error(err))
		} else if g.complete(solution) {
			logger.Info("Primary generation accepted", zap.Int("length", len(solution)))
			return g.formatSolution(solution, query, "AI Generation")
		} else {
			logger.Info("Primary generation rejected by completeness gate",
				zap.Int("length", len(solution)),
			)
		}
	}

	if !g.fastMode {
		for _, provider := range g.fallback {
			if !provider.Available() {
				continue
			}

			solution, err := g.generateFromSearch(ctx, query, provider)
			if err != nil {
				logger.Warn("Search-backed generation failed",
					zap.String("provider", provider.Name()),
					zap.Error(err),
				)
				continue
			}
			if g.complete(solution) {
				logger.Info("Search-backed generation accepted",
					zap.String("provider", provider.Name()),
				)
				return g.formatSolution(solution, query, providerLabel(provider.Name()))
			}
		}
	}

	logger.Info("Falling back to templated solution",
		zap.String("problem_type", ClassifyProblem(query)),
	)
	return TemplatedSolution(query)
}

func (g *Generator) generatePrimary(ctx context.Context, query, webContent string) (string, error) {
	userPrompt := fmt.Sprintf(`Solve this mathematical problem with complete step-by-step solution:

%s

Please provide a detailed mathematical solution showing every step of the work.`, query)

	if webContent != "" {
		userPrompt = fmt.Sprintf(`Based on these search results:

%s

Create a complete step-by-step solution for: %s`, truncate(webContent, 1500), query)
	}

	resp, err := g.primary.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: professorSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
		MaxTokens:    2000,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}

func (g *Generator) generateFromSearch(ctx context.Context, query string, provider search.Provider) (string, error) {
	results, err := provider.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no search results")
	}

	var content strings.Builder
	for i, r := range results {
		if i >= 3 {
			break
		}
		content.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", r.Title, r.Content))
	}

	if g.primary == nil {
		// No generator to synthesize with; present the findings directly.
		return formatResearchFindings(query, content.String(), provider.Name()), nil
	}

	resp, err := g.primary.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt: fmt.Sprintf(`Based on these search results:

%s

Create a complete step-by-step solution for: %s`, truncate(content.String(), 1500), query),
		Temperature: 0.2,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}

// Simplify re-generates a solution using the reader's feedback as extra
// context. On any provider failure the original solution is returned
// unchanged, never something worse.
func (g *Generator) Simplify(ctx context.Context, solution, feedback string) string {
	if g.primary == nil {
		return solution
	}

	resp, err := g.primary.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: `You are a mathematics tutor. Rewrite the given solution so it is simpler and clearer, directly addressing the reader's feedback. Keep every mathematical step correct and show all work.`,
		UserPrompt: fmt.Sprintf(`Previous solution:

%s

Reader feedback: %s

Rewrite the solution addressing this feedback.`, solution, feedback),
		Temperature: 0.2,
		MaxTokens:   2000,
	})
	if err != nil {
		logger.Warn("Solution refinement failed, keeping original", zap.Error(err))
		return solution
	}

	refined := strings.TrimSpace(resp.Content)
	if refined == "" {
		return solution
	}

	return refined
}

// formatSolution applies the presentation wrapper exactly once per response.
func (g *Generator) formatSolution(solution, query, source string) string {
	return fmt.Sprintf(`## Mathematical Solution

**Problem:** %s

**Solution Source:** %s

---

%s

---

*Solution generated using advanced AI with mathematical reasoning*
*Source: %s*`, query, source, strings.TrimSpace(solution), source)
}

func formatResearchFindings(query, content, source string) string {
	return fmt.Sprintf(`### Research Findings

%s

### Solution Approach

Based on the research above, here's how to approach this problem:

1. **Identify the Problem Type**: Analyze the mathematical concept involved
2. **Extract Key Information**: Use the research findings to understand the method
3. **Apply the Method**: Follow the step-by-step process indicated in the research
4. **Calculate**: Perform the necessary mathematical operations
5. **Verify**: Check your answer using the verification methods mentioned

*Solution compiled from %s research results for: %s*`, truncate(content, 1200), source, query)
}

func providerLabel(name string) string {
	if name == "" {
		return "AI Processing"
	}
	return fmt.Sprintf("%s%s + AI Processing", strings.ToUpper(name[:1]), name[1:])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
