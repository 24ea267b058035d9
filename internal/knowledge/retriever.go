package knowledge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/storage/models"
	"github.com/math-agent/backend/pkg/logger"
	"github.com/math-agent/backend/pkg/utils"
)

// Point is one embedded record handed to the similarity index.
type Point struct {
	ID     string
	Vector []float32
	Record models.KnowledgeRecord
}

// Match is a nearest-neighbor hit with its similarity score.
type Match struct {
	Record models.KnowledgeRecord
	Score  float32
}

// Index is the nearest-neighbor store the retriever runs on. Satisfied by the
// milvus client.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	SearchNearest(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// Embedder turns text into vectors. Satisfied by the llm client.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache memoizes query vectors keyed by text hash. Satisfied by the
// redis client.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

type Retriever struct {
	index     Index
	embedder  Embedder
	threshold float64

	cache    EmbeddingCache // optional
	cacheTTL time.Duration
}

type Option func(*Retriever)

// WithEmbeddingCache caches query embeddings so repeated questions skip the
// embedding API call.
func WithEmbeddingCache(cache EmbeddingCache, ttl time.Duration) Option {
	return func(r *Retriever) {
		r.cache = cache
		if ttl == 0 {
			ttl = time.Hour
		}
		r.cacheTTL = ttl
	}
}

// Result of a knowledge-base lookup. Confidence is the raw similarity score
// when Found, zero otherwise.
type Result struct {
	Found      bool
	Record     models.KnowledgeRecord
	Confidence float64
}

func NewRetriever(index Index, embedder Embedder, threshold float64, opts ...Option) *Retriever {
	if threshold == 0 {
		threshold = 0.7
	}
	r := &Retriever{
		index:     index,
		embedder:  embedder,
		threshold: threshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search embeds the query and reports the single nearest record, as a hit only
// when its similarity clears the threshold.
func (r *Retriever) Search(ctx context.Context, query string) (*Result, error) {
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.index.SearchNearest(ctx, vector, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	if len(matches) == 0 || float64(matches[0].Score) < r.threshold {
		return &Result{Found: false, Confidence: 0}, nil
	}

	best := matches[0]
	logger.Debug("Knowledge base hit",
		zap.String("question", best.Record.Question),
		zap.Float32("score", best.Score),
	)

	return &Result{
		Found:      true,
		Record:     best.Record,
		Confidence: float64(best.Score),
	}, nil
}

// embedQuery resolves the query vector, consulting the cache first when one is
// configured. Cache failures fall back to the embedder.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache == nil {
		return r.embedder.GenerateEmbedding(ctx, query)
	}

	hash := utils.HashString(query)

	vector, hit, err := r.cache.GetEmbedding(ctx, hash)
	if err != nil {
		logger.Warn("Embedding cache lookup failed", zap.Error(err))
	} else if hit {
		return vector, nil
	}

	vector, err = r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetEmbedding(ctx, hash, vector, r.cacheTTL); err != nil {
		logger.Warn("Embedding cache store failed", zap.Error(err))
	}

	return vector, nil
}
