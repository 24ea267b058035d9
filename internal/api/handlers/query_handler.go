package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/metrics"
	"github.com/math-agent/backend/internal/router"
	"github.com/math-agent/backend/internal/storage/models"
	"github.com/math-agent/backend/pkg/logger"
)

type HistoryReader interface {
	GetRecentQueries(limit int) ([]models.QueryRecord, error)
}

type FeedbackReader interface {
	Load() ([]models.FeedbackEntry, error)
}

type QueryHandler struct {
	orchestrator *router.Orchestrator
	history      HistoryReader  // optional
	feedbackLog  FeedbackReader // optional
}

func NewQueryHandler(orchestrator *router.Orchestrator, history HistoryReader, feedbackLog FeedbackReader) *QueryHandler {
	return &QueryHandler{
		orchestrator: orchestrator,
		history:      history,
		feedbackLog:  feedbackLog,
	}
}

// HandleQuery runs one question through the routing pipeline. The pipeline
// never errors; rejections come back as unsuccessful envelopes with HTTP 200
// so clients always get the structured result.
func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if sanitized, ok := c.Locals("sanitized_body").(map[string]interface{}); ok {
		if query, ok := sanitized["query"].(string); ok {
			req.Query = query
		}
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	start := time.Now()
	envelope := h.orchestrator.ProcessQuery(c.Context(), req.Query)

	status := "success"
	if !envelope.Success {
		status = "rejected"
		if envelope.Source == "guardrails" || envelope.Source == "output_guardrails" {
			metrics.GuardrailRejections.WithLabelValues(envelope.Source).Inc()
		}
	} else {
		metrics.ConfidenceScore.Observe(envelope.Confidence)
		if envelope.Source == "knowledge_base" {
			metrics.KnowledgeBaseHits.Inc()
		}
	}

	metrics.QueryTotal.WithLabelValues(status, envelope.Source).Inc()
	metrics.QueryDuration.WithLabelValues(envelope.Source).Observe(time.Since(start).Seconds())

	return c.JSON(envelope)
}

// HandleFeedback records a rating for a previous solution and, when the rating
// is poor, returns a refined version.
func (h *QueryHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		Query    string `json:"query"`
		Solution string `json:"solution"`
		Feedback string `json:"feedback"`
		Rating   int    `json:"rating"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse feedback body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" || req.Solution == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query and solution are required",
		})
	}

	if req.Rating < 1 || req.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rating must be between 1 and 5",
		})
	}

	result := h.orchestrator.ProcessFeedback(c.Context(), req.Query, req.Solution, req.Feedback, req.Rating)

	metrics.FeedbackRating.Observe(float64(req.Rating))
	if result.Success && req.Rating < 3 {
		metrics.SolutionsRefined.Inc()
	}

	return c.JSON(result)
}

// GetQueryHistory returns the most recent queries, newest first.
func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Query history is not available",
		})
	}

	limit := c.QueryInt("limit", 20)
	if limit > 100 {
		limit = 100
	}

	records, err := h.history.GetRecentQueries(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	if records == nil {
		records = []models.QueryRecord{}
	}

	return c.JSON(fiber.Map{
		"history": records,
		"count":   len(records),
	})
}

// GetFeedbackHistory returns logged feedback entries in append order; limit
// keeps only the most recent ones.
func (h *QueryHandler) GetFeedbackHistory(c *fiber.Ctx) error {
	if h.feedbackLog == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Feedback log is not available",
		})
	}

	entries, err := h.feedbackLog.Load()
	if err != nil {
		logger.Error("Failed to load feedback log", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load feedback log",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if entries == nil {
		entries = []models.FeedbackEntry{}
	}

	return c.JSON(fiber.Map{
		"feedback": entries,
		"count":    len(entries),
	})
}
