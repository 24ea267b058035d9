package guardrails

import (
	"fmt"
	"strings"
)

var mathKeywords = []string{
	"solve", "equation", "algebra", "calculus", "geometry",
	"trigonometry", "statistics", "probability", "derivative",
	"integral", "limit", "function", "graph", "matrix",
	"vector", "scalar", "logarithm", "exponent", "inequality",
	"polynomial", "quadratic", "linear", "mean", "median",
	"mode", "variance", "standard deviation", "binomial",
	"permutation", "combination", "series", "sequence",
	"differential", "area", "volume", "angle", "radius",
	"pi", "theorem", "proof", "identity", "domain", "range",
	"asymptote", "factor", "intercept", "transformation",
	"complex", "imaginary", "real", "root", "zero",
}

var blockedTerms = []string{
	"hack", "cheat", "answer key", "exam paper", "test solutions",
}

// Validator applies input and output guardrails. Matching is case-insensitive
// substring matching, not tokenized: "pi" matches inside "pizza". That quirk
// is intentional and covered by tests; do not switch to word boundaries.
type Validator struct {
	maxQueryLength  int
	minOutputLength int
}

func NewValidator(maxQueryLength, minOutputLength int) *Validator {
	if maxQueryLength == 0 {
		maxQueryLength = 500
	}
	if minOutputLength == 0 {
		minOutputLength = 10
	}
	return &Validator{
		maxQueryLength:  maxQueryLength,
		minOutputLength: minOutputLength,
	}
}

// ValidateInput rejects queries that are too long, off-topic, or that ask for
// academic-dishonesty material. The blocked-term check runs last so it
// dominates topic acceptance.
func (v *Validator) ValidateInput(query string) (bool, string) {
	if len(query) > v.maxQueryLength {
		return false, fmt.Sprintf("Query too long. Please keep it under %d characters.", v.maxQueryLength)
	}

	lower := strings.ToLower(query)

	hasMathContent := false
	for _, keyword := range mathKeywords {
		if strings.Contains(lower, keyword) {
			hasMathContent = true
			break
		}
	}
	if !hasMathContent {
		return false, "Please ask mathematics-related questions only."
	}

	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return false, "Cannot assist with exam cheating or unauthorized solutions."
		}
	}

	return true, "Valid query"
}

// ValidateOutput rejects solutions too short to be educational. No structural
// checks on step formatting.
func (v *Validator) ValidateOutput(solution string) (bool, string) {
	if len(solution) < v.minOutputLength {
		return false, "Response too brief for educational content."
	}

	return true, "Valid response"
}
