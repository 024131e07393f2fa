package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/credo-ai/credo/internal/api/handlers"
	mw "github.com/credo-ai/credo/internal/api/middleware"
	"github.com/credo-ai/credo/internal/config"
	"github.com/credo-ai/credo/internal/domain"
	"github.com/credo-ai/credo/internal/embedding"
	"github.com/credo-ai/credo/internal/extraction"
	"github.com/credo-ai/credo/internal/service"
	"github.com/credo-ai/credo/internal/similarity"
	"github.com/credo-ai/credo/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and services for lifecycle management.
type App struct {
	Router   *chi.Mux
	Analyzer *service.AnalyzerService

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	beliefStore := store.NewBeliefStore(db)
	relationshipStore := store.NewRelationshipStore(db)
	conflictStore := store.NewConflictStore(db)

	// External clients via provider factory
	var extractionClient domain.ExtractionClient
	var embeddingClient domain.EmbeddingClient

	extractionProvider := config.ExtractionProvider()
	embeddingProvider := config.EmbeddingProvider()

	var err error
	extractionClient, err = extraction.NewClient(extractionProvider, config.ExtractionAPIKey())
	if err != nil {
		logger.Warn("extraction client initialization failed", zap.String("provider", extractionProvider), zap.Error(err))
		extractionClient = extraction.NewMockClient()
	} else {
		logger.Info("extraction client initialized", zap.String("provider", extractionProvider))
	}

	embeddingClient, err = embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey(), config.EmbeddingModel())
	if err != nil {
		logger.Warn("embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else if embeddingClient != nil {
		logger.Info("embedding client initialized", zap.String("provider", embeddingProvider))
	}

	// Capability detection runs once at startup.
	detectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	matcher := similarity.Select(detectCtx, beliefStore, embeddingClient, logger)
	cancel()

	// Services
	beliefSvc := service.NewBeliefService(beliefStore, embeddingClient, logger)
	relationshipSvc := service.NewRelationshipService(relationshipStore, beliefStore, logger)
	graphSvc := service.NewGraphQueryService(beliefStore, relationshipStore, logger)
	analyzerSvc := service.NewAnalyzerService(beliefStore, relationshipStore, conflictStore, extractionClient, matcher, logger)

	// Handlers
	beliefHandler := handlers.NewBeliefHandler(beliefSvc)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipSvc)
	graphHandler := handlers.NewGraphHandler(graphSvc)
	conflictHandler := handlers.NewConflictHandler(analyzerSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Analyzer:  analyzerSvc,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1/agents/{agentID}", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		// Beliefs
		r.Route("/beliefs", func(r chi.Router) {
			r.Post("/", beliefHandler.Create)
			r.Get("/", beliefHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", beliefHandler.GetByID)
				r.Delete("/", beliefHandler.Delete)
				r.Put("/confidence", beliefHandler.UpdateConfidence)
				r.Post("/deactivate", beliefHandler.Deactivate)
				r.Get("/relationships", relationshipHandler.ListForBelief)
				r.Get("/superseding", relationshipHandler.ListSuperseding)
			})
		})

		// Relationships
		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", relationshipHandler.Create)
			r.Get("/", relationshipHandler.List)
			r.Post("/bulk", relationshipHandler.CreateBulk)
			r.Post("/deprecate", relationshipHandler.Deprecate)
			r.Get("/deprecated", relationshipHandler.ListDeprecated)
			r.Post("/cleanup", relationshipHandler.Cleanup)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", relationshipHandler.GetByID)
				r.Patch("/", relationshipHandler.Update)
				r.Delete("/", relationshipHandler.Delete)
				r.Post("/deactivate", relationshipHandler.Deactivate)
				r.Post("/reactivate", relationshipHandler.Reactivate)
			})
		})

		// Graph queries
		r.Route("/graph", func(r chi.Router) {
			r.Get("/reachable/{beliefID}", graphHandler.Reachable)
			r.Get("/path", graphHandler.ShortestPath)
			r.Get("/connected/{beliefID}", graphHandler.Connected)
			r.Get("/clusters", graphHandler.Clusters)
			r.Get("/deprecation-chain/{beliefID}", graphHandler.DeprecationChain)
			r.Get("/contradictions", graphHandler.Contradictions)
			r.Get("/validate", graphHandler.Validate)
			r.Get("/statistics", graphHandler.Statistics)
			r.Get("/snapshot", graphHandler.Snapshot)
		})

		// Evidence analysis and conflicts
		r.Post("/analyze", conflictHandler.Analyze)
		r.Post("/analyze/batch", conflictHandler.AnalyzeBatch)
		r.Post("/review", conflictHandler.Review)
		r.Route("/conflicts", func(r chi.Router) {
			r.Get("/", conflictHandler.ListUnresolved)
			r.Post("/{id}/resolve", conflictHandler.Resolve)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		analyzer := app.Analyzer.Metrics()

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"analyzer": map[string]any{
				"evidence_processed": analyzer.EvidenceProcessed,
				"evidence_failed":    analyzer.EvidenceFailed,
				"beliefs_created":    analyzer.BeliefsCreated,
				"beliefs_reinforced": analyzer.BeliefsReinforced,
				"conflicts_detected": analyzer.ConflictsDetected,
			},
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
