package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/notes-app/backend/internal/config"
	delivery "github.com/notes-app/backend/internal/delivery/http"
	"github.com/notes-app/backend/internal/middleware"
	"github.com/notes-app/backend/internal/repository/postgres"
	"github.com/notes-app/backend/internal/token"
	"github.com/notes-app/backend/internal/usecase"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Notes Backend Starting...")

	// Load .env when present, then configuration from the environment
	_ = godotenv.Load()
	cfg := config.Load()
	log.Printf("Server configured on port %s", cfg.Server.Port)

	// Connect to PostgreSQL with retry
	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				cancel()
				log.Println("Connected to PostgreSQL")
				break
			} else {
				pool.Close()
				log.Printf("Attempt %d: Failed to ping database: %v", attempt, pingErr)
			}
		} else {
			log.Printf("Attempt %d: Failed to connect to database: %v", attempt, err)
		}
		cancel()
		if attempt == 5 {
			log.Fatalf("Could not connect to database after 5 attempts")
		}
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	defer pool.Close()

	// Redis backs the auth rate limiter; the server runs without it.
	var rdb *redis.Client
	if cfg.RateLimit.Enabled && cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable, rate limiting disabled: %v", err)
			rdb = nil
		} else {
			log.Println("Connected to Redis")
		}
		cancel()
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)
	noteRepo := postgres.NewNoteRepository(pool)
	eventRepo := postgres.NewLoginEventRepository(pool)

	// Initialize usecases
	codec := token.NewCodec(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, eventRepo, codec)
	noteUsecase := usecase.NewNoteUsecase(noteRepo)

	// Initialize HTTP handler and middleware
	handler := delivery.NewHandler(authUsecase, noteUsecase)
	authMiddleware := middleware.NewAuthMiddleware(codec)
	limiter := middleware.NewRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Create router
	router := delivery.NewRouter(handler, authMiddleware, limiter, cfg.CORS.AllowedOrigins)

	// Periodically sweep expired refresh tokens. Single-use is enforced at
	// consume time; this only trims records nobody will redeem.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := tokenRepo.DeleteExpired(); err != nil {
					log.Printf("Failed to sweep expired refresh tokens: %v", err)
				}
			case <-sweepDone:
				return
			}
		}
	}()

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println()
	log.Println("Shutting down server...")
	close(sweepDone)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
