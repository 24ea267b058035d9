package guardrails

import (
	"strings"
	"testing"
)

func TestValidateInput(t *testing.T) {
	v := NewValidator(500, 10)

	tests := []struct {
		name    string
		query   string
		wantOK  bool
		wantMsg string
	}{
		{
			name:    "valid algebra question",
			query:   "Solve the equation 2x + 3 = 7",
			wantOK:  true,
			wantMsg: "Valid query",
		},
		{
			name:    "valid calculus question",
			query:   "What is the derivative of x^3?",
			wantOK:  true,
			wantMsg: "Valid query",
		},
		{
			name:    "off topic question",
			query:   "What is the capital of France?",
			wantOK:  false,
			wantMsg: "Please ask mathematics-related questions only.",
		},
		{
			name:    "blocked term on math topic",
			query:   "Give me the answer key for the algebra exam",
			wantOK:  false,
			wantMsg: "Cannot assist with exam cheating or unauthorized solutions.",
		},
		{
			name:    "blocked term without math topic rejected as off topic first",
			query:   "How do I cheat on my history test",
			wantOK:  false,
			wantMsg: "Please ask mathematics-related questions only.",
		},
		{
			name:    "too long",
			query:   "solve " + strings.Repeat("x", 500),
			wantOK:  false,
			wantMsg: "Query too long. Please keep it under 500 characters.",
		},
		{
			name:    "keyword match is case insensitive",
			query:   "SOLVE THIS EQUATION",
			wantOK:  true,
			wantMsg: "Valid query",
		},
		{
			name:   "substring match accepts pi inside pizza",
			query:  "How many slices in a pizza?",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := v.ValidateInput(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("ValidateInput(%q) ok = %v, want %v (msg %q)", tt.query, ok, tt.wantOK, msg)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("ValidateInput(%q) msg = %q, want %q", tt.query, msg, tt.wantMsg)
			}
		})
	}
}

func TestValidateInputLengthCheckedBeforeTopic(t *testing.T) {
	v := NewValidator(500, 10)

	// Over-long and off-topic: the length rejection must win.
	query := strings.Repeat("banana ", 100)
	ok, msg := v.ValidateInput(query)
	if ok {
		t.Fatal("expected rejection")
	}
	if !strings.HasPrefix(msg, "Query too long") {
		t.Errorf("msg = %q, want length rejection", msg)
	}
}

func TestValidateOutput(t *testing.T) {
	v := NewValidator(500, 10)

	tests := []struct {
		name     string
		solution string
		wantOK   bool
		wantMsg  string
	}{
		{
			name:     "long enough",
			solution: "x = 2 is the solution",
			wantOK:   true,
			wantMsg:  "Valid response",
		},
		{
			name:     "too short",
			solution: "x = 2",
			wantOK:   false,
			wantMsg:  "Response too brief for educational content.",
		},
		{
			name:     "empty",
			solution: "",
			wantOK:   false,
			wantMsg:  "Response too brief for educational content.",
		},
		{
			name:     "exactly at threshold",
			solution: "0123456789",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := v.ValidateOutput(tt.solution)
			if ok != tt.wantOK {
				t.Fatalf("ValidateOutput(%q) ok = %v, want %v", tt.solution, ok, tt.wantOK)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("ValidateOutput(%q) msg = %q, want %q", tt.solution, msg, tt.wantMsg)
			}
		})
	}
}

func TestNewValidatorDefaults(t *testing.T) {
	v := NewValidator(0, 0)

	long := "solve " + strings.Repeat("x", 495)
	if ok, _ := v.ValidateInput(long); ok {
		t.Error("expected default 500-char limit to reject 501-char query")
	}

	if ok, _ := v.ValidateOutput("123456789"); ok {
		t.Error("expected default 10-char minimum to reject 9-char solution")
	}
}
