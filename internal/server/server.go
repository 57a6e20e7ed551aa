package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"parts-finder/internal/classifier"
	"parts-finder/internal/config"
	custommiddleware "parts-finder/internal/middleware"
	"parts-finder/internal/ingest"
	"parts-finder/internal/repository"
	"parts-finder/internal/search"
	"parts-finder/internal/service"
	"parts-finder/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// classifierHTTPTimeout bounds a single call to the classification service
const classifierHTTPTimeout = 60 * time.Second

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	redis  *redis.Client
}

// NewServer wires the inventory core, the classifier chain and the HTTP
// routes. redisClient may be nil, which disables caching and rate limiting.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, redisClient *redis.Client) (*Server, error) {
	// Initialize repositories
	inventoryRepo := repository.NewInventoryRepository()
	if cfg.Inventory.SeedDemo {
		if err := repository.SeedDemo(ctx, inventoryRepo); err != nil {
			return nil, fmt.Errorf("failed to seed demo inventory: %w", err)
		}
		logger.Info("Demo inventory seeded", zap.Int("items", len(repository.DemoItems())))
	}

	imageRunner, err := newImageRunner(ctx, cfg.Classifier, redisClient, logger)
	if err != nil {
		return nil, err
	}

	// Initialize services
	inventoryService := service.NewInventoryService(
		inventoryRepo,
		ingest.NewParser(),
		search.NewMatcher(search.Options{CaseInsensitiveAIName: cfg.Search.CaseInsensitiveAIName}),
		imageRunner,
		logger,
	)

	// Initialize handlers
	inventoryHandler := transport.NewInventoryHandler(inventoryService, cfg.Inventory.UploadMaxBytes, logger)
	searchHandler := transport.NewSearchHandler(inventoryService, cfg.Inventory.UploadMaxBytes, logger)

	var imageLimiter func(http.Handler) http.Handler
	if redisClient != nil {
		imageLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit:image_search",
		}, logger)
	}

	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Register routes
	inventoryHandler.RegisterRoutes(router)
	searchHandler.RegisterRoutes(router, imageLimiter)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: cfg.Classifier.Timeout + 30*time.Second,
		},
		config: cfg,
		logger: logger,
		redis:  redisClient,
	}

	return server, nil
}

// newImageRunner builds Gemini -> retry -> cache -> per-session runner
func newImageRunner(ctx context.Context, cfg config.ClassifierConfig, redisClient *redis.Client, logger *zap.Logger) (*classifier.Runner, error) {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, image search will fail")
	}

	gemini, err := classifier.NewGeminiClient(ctx, classifier.GeminiConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, &http.Client{Timeout: classifierHTTPTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}

	var analyzer classifier.Analyzer = classifier.NewRetryingAnalyzer(gemini, cfg.MaxRetries, 0, logger)

	if redisClient != nil && cfg.CacheTTL > 0 {
		analyzer = classifier.NewCachedAnalyzer(analyzer, redisClient, classifier.CacheConfig{
			TTL:       cfg.CacheTTL,
			KeyPrefix: "classifier:" + cfg.Model,
		}, logger)
	}

	return classifier.NewRunner(analyzer, cfg.Timeout, logger), nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close redis connection
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
