package server

import (
	"fmt"
	"net/http"
	"time"

	"qrmenu/internal/auth"
	"qrmenu/internal/cart"
	"qrmenu/internal/catalog"
	"qrmenu/internal/checkout"
	"qrmenu/internal/config"
	custommiddleware "qrmenu/internal/middleware"
	"qrmenu/internal/normalize"
	"qrmenu/internal/pos"
	"qrmenu/internal/storage"
	"qrmenu/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	redis  *redis.Client
	Tokens *auth.TokenManager
	Menu   *catalog.Service
}

func NewServer(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "qrmenu:ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize the core: local store, token lifecycle, POS client,
	// normalizer, cart, catalog, checkout
	store := storage.New(redisClient)
	tokens := auth.NewTokenManager(cfg.POS, store, logger)
	posClient := pos.NewClient(cfg.POS, tokens, logger)

	imageBase := cfg.POS.ImageBaseURL
	if imageBase == "" {
		imageBase = cfg.POS.BaseURL
	}
	normalizer := normalize.New(imageBase, logger)

	cartStore := cart.NewStore(store, logger)
	catalogService := catalog.NewService(posClient, normalizer, logger)
	checkoutService := checkout.NewService(posClient, normalizer, store, cartStore, cfg.Checkout.PaymentDelay, logger)

	// Initialize handlers
	sessionHandler := transport.NewSessionHandler(cfg.Session, logger)
	menuHandler := transport.NewMenuHandler(catalogService, logger)
	cartHandler := transport.NewCartHandler(cartStore, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)

	sessionMiddleware := custommiddleware.SessionMiddleware(cfg.Session.Secret, logger)

	// Register routes
	sessionHandler.RegisterRoutes(router)
	menuHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router, sessionMiddleware)
	checkoutHandler.RegisterRoutes(router, sessionMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:     router,
			IdleTimeout: time.Minute,
			ReadTimeout: 10 * time.Second,
			// No write timeout: the cart SSE stream stays open for the
			// life of the client connection.
			WriteTimeout: 0,
		},
		config: cfg,
		logger: logger,
		redis:  redisClient,
		Tokens: tokens,
		Menu:   catalogService,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
