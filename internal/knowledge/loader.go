package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/storage/models"
	"github.com/math-agent/backend/pkg/logger"
)

// Initialize bulk-loads the worked-problem dataset into the similarity index.
// A missing or unreadable dataset leaves the index empty and is never fatal;
// queries then fall through to web search and generation.
func (r *Retriever) Initialize(ctx context.Context, datasetPath string) error {
	records, err := loadDataset(datasetPath)
	if err != nil {
		logger.Warn("Knowledge base initialization skipped",
			zap.String("path", datasetPath),
			zap.Error(err),
		)
		return nil
	}

	if err := r.IndexRecords(ctx, records); err != nil {
		logger.Warn("Knowledge base indexing failed", zap.Error(err))
		return nil
	}

	logger.Info("Knowledge base loaded",
		zap.String("path", datasetPath),
		zap.Int("records", len(records)),
	)
	return nil
}

// IndexRecords embeds and upserts records into the index. Question and
// solution are embedded together so either side of a problem can match.
func (r *Retriever) IndexRecords(ctx context.Context, records []models.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = fmt.Sprintf("Question: %s Solution: %s", rec.Question, rec.Solution)
	}

	embeddings, err := r.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed dataset: %w", err)
	}
	if len(embeddings) != len(records) {
		return fmt.Errorf("embedding count mismatch: %d records, %d vectors", len(records), len(embeddings))
	}

	points := make([]Point, len(records))
	for i, rec := range records {
		if rec.Topic == "" {
			rec.Topic = "general"
		}
		if rec.Difficulty == "" {
			rec.Difficulty = "medium"
		}
		points[i] = Point{
			ID:     uuid.New().String(),
			Vector: embeddings[i],
			Record: rec,
		}
	}

	return r.index.Upsert(ctx, points)
}

func loadDataset(path string) ([]models.KnowledgeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var records []models.KnowledgeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	return records, nil
}
