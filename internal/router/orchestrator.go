package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/knowledge"
	"github.com/math-agent/backend/internal/search"
	"github.com/math-agent/backend/internal/storage/models"
	"github.com/math-agent/backend/pkg/logger"
	"github.com/math-agent/backend/pkg/utils"
)

// SolutionEnvelope is the terminal result of one routed query. Exactly one
// source tag determines provenance; confidence is the knowledge-base
// similarity score or a fixed 0.5 for every other source.
type SolutionEnvelope struct {
	Success    bool      `json:"success"`
	Solution   string    `json:"solution,omitempty"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FeedbackResult is the soft-failure response of the feedback path.
type FeedbackResult struct {
	Success         bool   `json:"success"`
	RefinedSolution string `json:"refined_solution,omitempty"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}

type Guardrails interface {
	ValidateInput(query string) (bool, string)
	ValidateOutput(solution string) (bool, string)
}

type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) (*knowledge.Result, error)
}

type WebSearcher interface {
	SearchMathSolution(ctx context.Context, query string) (*search.ChainResult, error)
	ExtractSolutionContent(results []search.Result, source string) string
}

type Synthesizer interface {
	GenerateStepByStep(ctx context.Context, query, webContent string) string
	Simplify(ctx context.Context, solution, feedback string) string
}

type FeedbackLog interface {
	Append(entry models.FeedbackEntry) error
}

type HistoryStore interface {
	InsertQueryRecord(record *models.QueryRecord) error
}

type EnvelopeCache interface {
	SetEnvelope(ctx context.Context, queryHash string, envelope interface{}, ttl time.Duration) error
	GetEnvelope(ctx context.Context, queryHash string, envelope interface{}) (bool, error)
}

// Orchestrator sequences one query through guardrails, knowledge-base lookup,
// the web-search chain, and synthesis. It never returns an error or panics to
// its caller; every failure mode collapses into an envelope.
type Orchestrator struct {
	guardrails Guardrails
	retriever  KnowledgeSearcher
	webSearch  WebSearcher
	solver     Synthesizer
	feedback   FeedbackLog

	history  HistoryStore  // optional
	cache    EnvelopeCache // optional
	cacheTTL time.Duration
}

type Option func(*Orchestrator)

// WithHistory enables best-effort query-history recording.
func WithHistory(store HistoryStore) Option {
	return func(o *Orchestrator) {
		o.history = store
	}
}

// WithCache enables envelope caching for successful responses.
func WithCache(cache EnvelopeCache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = cache
		o.cacheTTL = ttl
	}
}

func NewOrchestrator(
	guardrails Guardrails,
	retriever KnowledgeSearcher,
	webSearch WebSearcher,
	solver Synthesizer,
	feedbackLog FeedbackLog,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		guardrails: guardrails,
		retriever:  retriever,
		webSearch:  webSearch,
		solver:     solver,
		feedback:   feedbackLog,
		cacheTTL:   time.Hour,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessQuery routes one raw query to a solution envelope.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (envelope *SolutionEnvelope) {
	startTime := time.Now()
	queryID := uuid.New().String()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Query processing panicked",
				zap.String("query_id", queryID),
				zap.Any("panic", r),
			)
			envelope = &SolutionEnvelope{
				Success:   false,
				Error:     fmt.Sprintf("Processing failed: %v", r),
				Source:    "system_error",
				Timestamp: time.Now(),
			}
		}
	}()

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.String("query", query),
	)

	// Step 1: input guardrails.
	if ok, message := o.guardrails.ValidateInput(query); !ok {
		logger.Info("Query rejected by guardrails",
			zap.String("query_id", queryID),
			zap.String("reason", message),
		)
		return &SolutionEnvelope{
			Success:   false,
			Error:     message,
			Source:    "guardrails",
			Timestamp: time.Now(),
		}
	}

	if cached := o.lookupCache(ctx, query); cached != nil {
		return cached
	}

	// Step 2: knowledge base. A disabled index or an internal error is a
	// miss, never a failure.
	var solution, source string
	confidence := 0.5

	kbResult := &knowledge.Result{Found: false}
	if o.retriever != nil {
		result, err := o.retriever.Search(ctx, query)
		if err != nil {
			logger.Warn("Knowledge base search failed", zap.Error(err))
		} else if result != nil {
			kbResult = result
		}
	}

	if kbResult.Found {
		solution = formatKBSolution(kbResult.Record)
		source = "knowledge_base"
		confidence = kbResult.Confidence
	} else {
		// Step 3: web search, then synthesis with or without its content.
		chainResult, err := o.webSearch.SearchMathSolution(ctx, query)
		if err == nil && chainResult != nil {
			webContent := o.webSearch.ExtractSolutionContent(chainResult.Results, chainResult.Source)
			solution = o.solver.GenerateStepByStep(ctx, query, webContent)
			source = fmt.Sprintf("web_search_%s", chainResult.Source)
		} else {
			if err != nil {
				logger.Warn("Web search chain exhausted", zap.Error(err))
			}
			solution = o.solver.GenerateStepByStep(ctx, query, "")
			source = "ai_generated"
		}
	}

	// Step 4: output guardrails. A validator crash must not block a response.
	ok, message := o.validateOutputSafe(solution)
	if !ok {
		return &SolutionEnvelope{
			Success:   false,
			Error:     message,
			Source:    "output_guardrails",
			Timestamp: time.Now(),
		}
	}

	envelope = &SolutionEnvelope{
		Success:    true,
		Solution:   solution,
		Source:     source,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}

	o.recordHistory(queryID, query, envelope, startTime)
	o.storeCache(ctx, query, envelope)

	logger.Info("Query processed",
		zap.String("query_id", queryID),
		zap.String("source", source),
		zap.Float64("confidence", confidence),
		zap.Duration("latency", time.Since(startTime)),
	)

	return envelope
}

// ProcessFeedback records reader feedback and, for poor ratings, asks the
// synthesizer for a refined solution. Never raises: any internal failure
// yields a soft error result.
func (o *Orchestrator) ProcessFeedback(ctx context.Context, query, solution, feedbackText string, rating int) (result *FeedbackResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Feedback processing panicked", zap.Any("panic", r))
			result = &FeedbackResult{
				Success: false,
				Error:   fmt.Sprintf("Feedback processing failed: %v", r),
				Message: "Sorry, we couldn't process your feedback right now.",
			}
		}
	}()

	refined := solution
	if rating < 3 {
		refined = o.solver.Simplify(ctx, solution, feedbackText)
	}

	entry := models.FeedbackEntry{
		Timestamp:        time.Now(),
		Query:            query,
		OriginalSolution: solution,
		RefinedSolution:  refined,
		Feedback:         feedbackText,
		Rating:           rating,
	}

	if err := o.feedback.Append(entry); err != nil {
		logger.Error("Failed to persist feedback", zap.Error(err))
	}

	return &FeedbackResult{
		Success:         true,
		RefinedSolution: refined,
		Message:         "Thank you for your feedback! The solution has been improved.",
	}
}

func (o *Orchestrator) validateOutputSafe(solution string) (ok bool, message string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Output validation crashed, passing solution through", zap.Any("panic", r))
			ok = true
			message = ""
		}
	}()

	return o.guardrails.ValidateOutput(solution)
}

func (o *Orchestrator) lookupCache(ctx context.Context, query string) *SolutionEnvelope {
	if o.cache == nil {
		return nil
	}

	var cached SolutionEnvelope
	hit, err := o.cache.GetEnvelope(ctx, utils.HashString(query), &cached)
	if err != nil {
		logger.Warn("Cache lookup failed", zap.Error(err))
		return nil
	}
	if !hit {
		return nil
	}

	return &cached
}

func (o *Orchestrator) storeCache(ctx context.Context, query string, envelope *SolutionEnvelope) {
	if o.cache == nil {
		return
	}

	if err := o.cache.SetEnvelope(ctx, utils.HashString(query), envelope, o.cacheTTL); err != nil {
		logger.Warn("Cache store failed", zap.Error(err))
	}
}

func (o *Orchestrator) recordHistory(queryID, query string, envelope *SolutionEnvelope, startTime time.Time) {
	if o.history == nil {
		return
	}

	record := &models.QueryRecord{
		ID:         queryID,
		QueryText:  query,
		Solution:   envelope.Solution,
		Source:     envelope.Source,
		Confidence: envelope.Confidence,
		LatencyMS:  int(time.Since(startTime).Milliseconds()),
		CreatedAt:  time.Now(),
	}

	if err := o.history.InsertQueryRecord(record); err != nil {
		logger.Warn("Failed to record query history", zap.Error(err))
	}
}

func formatKBSolution(record models.KnowledgeRecord) string {
	topic := record.Topic
	if topic == "" {
		topic = "General"
	}
	difficulty := record.Difficulty
	if difficulty == "" {
		difficulty = "Medium"
	}
	solution := record.Solution
	if solution == "" {
		solution = "No solution available"
	}

	return fmt.Sprintf(`**Topic:** %s
**Difficulty:** %s

**Question:** %s

**Solution:**
%s

*Source: Knowledge Base*`, topic, difficulty, record.Question, solution)
}
