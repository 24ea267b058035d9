package models

import "time"

// KnowledgeRecord is one worked problem from the curated dataset. Records are
// bulk-loaded at startup and never mutated while serving queries.
type KnowledgeRecord struct {
	Question   string `json:"question"`
	Solution   string `json:"solution"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// QueryRecord is one processed query as persisted to the history store.
type QueryRecord struct {
	ID         string    `json:"id"`
	QueryText  string    `json:"query"`
	Solution   string    `json:"solution"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	LatencyMS  int       `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedbackEntry is one appended line of the feedback log.
type FeedbackEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	Query            string    `json:"query"`
	OriginalSolution string    `json:"original_solution"`
	RefinedSolution  string    `json:"refined_solution"`
	Feedback         string    `json:"feedback"`
	Rating           int       `json:"rating"`
}
