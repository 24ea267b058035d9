package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/api/handlers"
	"github.com/math-agent/backend/internal/cache/redis"
	"github.com/math-agent/backend/internal/feedback"
	"github.com/math-agent/backend/internal/guardrails"
	"github.com/math-agent/backend/internal/knowledge"
	"github.com/math-agent/backend/internal/llm"
	"github.com/math-agent/backend/internal/metrics"
	"github.com/math-agent/backend/internal/middleware/ratelimit"
	"github.com/math-agent/backend/internal/middleware/security"
	"github.com/math-agent/backend/internal/middleware/validation"
	"github.com/math-agent/backend/internal/router"
	"github.com/math-agent/backend/internal/search"
	"github.com/math-agent/backend/internal/solver"
	"github.com/math-agent/backend/internal/storage/sqlite"
	"github.com/math-agent/backend/internal/vector/milvus"
	"github.com/math-agent/backend/pkg/config"
	appLogger "github.com/math-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Math Routing Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var llmClient *llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewClient(llm.Options{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			TimeoutSec:     cfg.LLM.TimeoutSec,
		})
	} else {
		appLogger.Warn("No LLM API key configured, AI generation disabled")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Caching disabled, redis unavailable", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	cacheTTL := time.Duration(cfg.Redis.TTLSec) * time.Second

	// The knowledge base is optional: without milvus or an embedder, queries
	// fall through to web search and templated generation.
	var retriever *knowledge.Retriever
	if llmClient != nil {
		milvusClient, err := milvus.NewClient(
			cfg.Milvus.Endpoint,
			cfg.Milvus.CollectionName,
			cfg.Milvus.VectorDim,
		)
		if err != nil {
			appLogger.Warn("Knowledge base disabled, milvus unavailable", zap.Error(err))
		} else {
			defer milvusClient.Close()

			if err := milvusClient.CreateCollection(context.Background()); err != nil {
				appLogger.Warn("Knowledge base disabled, collection setup failed", zap.Error(err))
			} else {
				var retrieverOpts []knowledge.Option
				if redisClient != nil {
					retrieverOpts = append(retrieverOpts, knowledge.WithEmbeddingCache(redisClient, cacheTTL))
				}
				retriever = knowledge.NewRetriever(milvusClient, llmClient, cfg.Knowledge.SimilarityThreshold, retrieverOpts...)
				retriever.Initialize(context.Background(), cfg.Knowledge.DatasetPath)
			}
		}
	} else {
		appLogger.Warn("Knowledge base disabled, no embedder available")
	}

	perplexity := search.NewPerplexityProvider(cfg.Search.PerplexityAPIKey, cfg.Search.PerplexityModel, cfg.Search.TimeoutSec)
	tavily := search.NewTavilyProvider(cfg.Search.TavilyAPIKey, cfg.Search.MaxResults, cfg.Search.TimeoutSec)
	duckduckgo := search.NewDuckDuckGoProvider(cfg.Search.MaxResults, cfg.Search.TimeoutSec)

	searchChain := search.NewChain(perplexity, tavily, duckduckgo)

	var primary solver.TextGenerator
	if llmClient != nil {
		primary = llmClient
	}
	// Perplexity is already first in the router's search chain, so the
	// synthesizer's own fallback stages only use the link-based providers.
	generator := solver.NewGenerator(primary,
		solver.WithFallbackProviders(tavily, duckduckgo),
		solver.WithFastMode(cfg.Solver.FastMode),
	)

	validator := guardrails.NewValidator(cfg.Guardrails.MaxQueryLength, cfg.Guardrails.MinOutputLength)
	feedbackStore := feedback.NewStore(cfg.Feedback.Path)

	orchestratorOpts := []router.Option{
		router.WithHistory(sqliteClient),
	}
	if redisClient != nil {
		orchestratorOpts = append(orchestratorOpts, router.WithCache(redisClient, cacheTTL))
	}

	var kbSearcher router.KnowledgeSearcher
	if retriever != nil {
		kbSearcher = retriever
	}

	orchestrator := router.NewOrchestrator(
		validator,
		kbSearcher,
		searchChain,
		generator,
		feedbackStore,
		orchestratorOpts...,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxQueryLength: cfg.Guardrails.MaxQueryLength * 2,
		Logger:         appLogger.GetLogger(),
	}))

	queryHandler := handlers.NewQueryHandler(orchestrator, sqliteClient, feedbackStore)
	knowledgeHandler := handlers.NewKnowledgeHandler(retriever)
	wsHandler := handlers.NewWebSocketHandler(orchestrator)

	api := app.Group("/api/v1")

	api.Post("/query", queryHandler.HandleQuery)
	api.Post("/feedback", queryHandler.HandleFeedback)
	api.Get("/feedback", queryHandler.GetFeedbackHistory)
	api.Get("/history", queryHandler.GetQueryHistory)
	api.Post("/knowledge", knowledgeHandler.HandleBulkLoad)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":         "ready",
			"knowledge_base": retriever != nil,
			"ai_generation":  llmClient != nil,
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
