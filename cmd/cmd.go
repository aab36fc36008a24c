package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-exchange-backend/internal/config"
	"photo-exchange-backend/internal/handlers"
	"photo-exchange-backend/internal/middleware"
	"photo-exchange-backend/internal/repository"
	"photo-exchange-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if err := repository.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	galleryRepo := repository.NewGalleryRepository(db)
	banRepo := repository.NewBanRepository(db)
	mapRepo := repository.NewLocationMapRepository(db)

	// Initialize blob storage
	blobs, err := services.NewS3BlobStore(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create blob store")
	}

	// Initialize notification plumbing
	pushNotifier, err := services.NewPushNotifier(cfg.Push)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push notifier")
	}
	pushNotifier.Start()
	defer pushNotifier.Stop()

	wsHub := services.NewWSHub()
	events := services.NewExchangeNotifier(wsHub, pushNotifier)

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	moderationService := services.NewModerationService(banRepo, photoRepo, galleryRepo)
	galleryService := services.NewGalleryService(galleryRepo, photoRepo)
	exchangeService := services.NewExchangeService(
		photoRepo, userRepo, galleryRepo, mapRepo, moderationService, blobs, events,
	)
	sweeper := services.NewSweeper(photoRepo, blobs, cfg.Retention)
	mapFetcher := services.NewMapFetcher(mapRepo, photoRepo, blobs, nil, cfg.Maps)

	// Start background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go sweeper.Run(workerCtx)
	go mapFetcher.Run(workerCtx)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	photoHandler := handlers.NewPhotoHandler(
		exchangeService, galleryService, cfg.Server.MaxUploadBytes, cfg.Moderation.IPSalt,
	)
	galleryHandler := handlers.NewGalleryHandler(galleryService)
	adminHandler := handlers.NewAdminHandler(moderationService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Put("/users/push-token", userHandler.UpdatePushToken)
			r.Post("/photos", photoHandler.UploadPhoto)
			r.Get("/photos/fresh-count", photoHandler.GetFreshCount)
			r.Get("/photos/{photo_id}/exchanged", photoHandler.GetExchangedPhoto)
			r.Get("/photos/{photo_id}/map", photoHandler.GetLocationMap)
			r.Put("/photos/{photo_id}/favourite", galleryHandler.SetFavourite)
			r.Put("/photos/{photo_id}/report", galleryHandler.SetReport)
			r.Get("/gallery", galleryHandler.GetGalleryPage)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminMiddleware(cfg.Moderation.AdminToken))
			r.Post("/admin/bans/user", adminHandler.BanUser)
			r.Post("/admin/bans/photo", adminHandler.BanPhoto)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	stopWorkers()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Admin-Token")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
