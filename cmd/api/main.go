package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/passbi/passbi_planner/internal/api"
	"github.com/passbi/passbi_planner/internal/cache"
	"github.com/passbi/passbi_planner/internal/config"
	"github.com/passbi/passbi_planner/internal/db"
	"github.com/passbi/passbi_planner/internal/geocode"
	"github.com/passbi/passbi_planner/internal/knowledge"
	"github.com/passbi/passbi_planner/internal/llm"
	"github.com/passbi/passbi_planner/internal/middleware"
	"github.com/passbi/passbi_planner/internal/provider"
	"github.com/passbi/passbi_planner/internal/query"
	"github.com/passbi/passbi_planner/internal/routing"
)

func main() {
	config.InitLogging()
	log.Println("Starting PassBi planner API server...")

	cfg := config.LoadConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	checks := map[string]api.HealthCheck{}

	// Routing provider
	gh := provider.NewGraphHopper(cfg.Provider)
	synth := routing.NewSynthesizer(geocode.NewResolver(gh), gh)
	log.Printf("✓ Routing provider configured (%s)", cfg.Provider.BaseURL)

	// Model and embeddings
	var (
		generator query.Generator = llm.Unconfigured{}
		embedder  knowledge.Embedder
	)
	if cfg.ModelEnabled() {
		gemini, err := llm.NewGemini(ctx, cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		generator = gemini
		embedder = gemini
		log.Printf("✓ Gemini model configured (%s)", cfg.LLM.Model)
	} else {
		embedder = knowledge.NewHashEmbedder(0)
		log.Println("⚠ GOOGLE_API_KEY not set: using local embeddings, questions will get the fallback answer")
	}

	// Knowledge index
	var index knowledge.Index
	switch cfg.IndexBackend {
	case config.IndexPostgres:
		pool, err := db.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		log.Println("✓ Database connection established")

		space := embedder.Space()
		if err := db.EnsureSchema(ctx, pool, space.Dim); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		log.Printf("✓ Knowledge schema ready (embeddings: %s, %d dims)", space.Name, space.Dim)

		index = knowledge.NewPostgresIndex(pool, embedder)
		checks["database"] = func(ctx context.Context) error { return db.HealthCheck(ctx, pool) }
	default:
		index = knowledge.NewMemoryIndex(embedder)
		log.Println("✓ In-memory knowledge index ready")
	}

	// Redis for plan caching and rate limiting
	var (
		planCache api.PlanCache
		limiter   fiber.Handler
	)
	if cfg.RedisEnabled() {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("✓ Redis connection established")

		pc := cache.NewPlanCache(rdb, cfg.Redis)
		checks["redis"] = pc.HealthCheck
		if cfg.CacheEnabled {
			planCache = pc
		}
		if cfg.RateLimitPerMinute > 0 {
			limiter = middleware.RateLimit(middleware.NewRedisCounter(rdb), cfg.RateLimitPerMinute)
		}
	}

	sessions := query.NewSessionStore(cfg.SessionIdleTTL)
	engine := query.NewEngine(index, generator, query.Options{
		K:      cfg.RetrieveK,
		FetchK: cfg.RetrieveFetchK,
	})

	handler := api.NewHandler(api.Deps{
		Planner:    synth,
		Ingester:   knowledge.NewStore(index),
		Engine:     engine,
		Sessions:   sessions,
		Cache:      planCache,
		Checks:     checks,
		AutoIngest: cfg.AutoIngest,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PassBi Planner API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: api.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handler.Register(app, limiter)
	app.Use(api.NotFound)

	// Forget idle conversations
	stopPruning := make(chan struct{})
	if cfg.SessionIdleTTL > 0 {
		go pruneSessions(sessions, cfg.SessionIdleTTL, stopPruning)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		close(stopPruning)
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Plan: POST http://localhost%s/v1/plan {\"origin\":..., \"destination\":...}", addr)
	log.Printf("💬 Ask:  POST http://localhost%s/v1/query {\"question\":...}", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func pruneSessions(sessions *query.SessionStore, ttl time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := sessions.Prune(); n > 0 {
				log.Printf("Pruned %d idle sessions", n)
			}
		}
	}
}
