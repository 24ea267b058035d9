package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/knowledge"
	"github.com/math-agent/backend/internal/metrics"
	"github.com/math-agent/backend/internal/storage/models"
	"github.com/math-agent/backend/pkg/logger"
)

type KnowledgeHandler struct {
	retriever *knowledge.Retriever
}

func NewKnowledgeHandler(retriever *knowledge.Retriever) *KnowledgeHandler {
	return &KnowledgeHandler{retriever: retriever}
}

// HandleBulkLoad embeds and indexes a batch of worked problems.
func (h *KnowledgeHandler) HandleBulkLoad(c *fiber.Ctx) error {
	if h.retriever == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Knowledge base is not available",
		})
	}

	var req struct {
		Records []models.KnowledgeRecord `json:"records"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse knowledge payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Records) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one record is required",
		})
	}

	for i, rec := range req.Records {
		if rec.Question == "" || rec.Solution == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Every record needs a question and a solution",
				"index": i,
			})
		}
	}

	if err := h.retriever.IndexRecords(c.Context(), req.Records); err != nil {
		logger.Error("Failed to index knowledge records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to index records",
		})
	}

	metrics.KnowledgeRecordsIndexed.Add(float64(len(req.Records)))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"indexed": len(req.Records),
	})
}
