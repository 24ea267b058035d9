package solver

import "strings"

// CompletenessPolicy decides whether generated text is acceptable as a final
// solution. It is a named field on the Generator so it can be tuned or
// replaced without touching the stage ordering.
type CompletenessPolicy func(solution string) bool

var mathIndicators = []string{
	"step", "solve", "equation", "calculate", "=", "answer", "solution",
	"therefore", "thus", "result", "final", "+", "-", "*", "/", "^",
}

// DefaultCompleteness accepts text of at least 100 characters containing at
// least three mathematical indicator tokens. Substring counting is
// deliberately crude; it gates fallback stages, it does not verify math.
func DefaultCompleteness(solution string) bool {
	trimmed := strings.TrimSpace(solution)
	if len(trimmed) < 100 {
		return false
	}

	lower := strings.ToLower(trimmed)
	count := 0
	for _, indicator := range mathIndicators {
		if strings.Contains(lower, indicator) {
			count++
		}
	}

	return count >= 3
}
