package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "math_agent_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "math_agent_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status", "source"},
	)

	GuardrailRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "math_agent_guardrail_rejections_total",
			Help: "Queries and solutions rejected by guardrails",
		},
		[]string{"stage"},
	)

	KnowledgeBaseHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "math_agent_knowledge_base_hits_total",
			Help: "Queries answered from the knowledge base",
		},
	)

	SearchProviderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "math_agent_search_provider_attempts_total",
			Help: "Web search attempts per provider",
		},
		[]string{"provider", "status"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "math_agent_confidence_score",
			Help:    "Solution confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	FeedbackRating = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "math_agent_feedback_rating",
			Help:    "User feedback ratings",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	SolutionsRefined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "math_agent_solutions_refined_total",
			Help: "Solutions regenerated after a poor rating",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "math_agent_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "math_agent_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	KnowledgeRecordsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "math_agent_knowledge_records_indexed_total",
			Help: "Knowledge base records indexed",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "math_agent_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(GuardrailRejections)
	prometheus.MustRegister(KnowledgeBaseHits)
	prometheus.MustRegister(SearchProviderAttempts)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(FeedbackRating)
	prometheus.MustRegister(SolutionsRefined)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(KnowledgeRecordsIndexed)
	prometheus.MustRegister(LLMTokensUsed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
