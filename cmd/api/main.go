package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/foodgram-project/backend/config"
	"github.com/foodgram-project/backend/internal/database"
	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/router"
	"github.com/foodgram-project/backend/internal/server"
	"github.com/foodgram-project/backend/internal/service"
)

func main() {
	// Local development reads .env; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis only backs the write rate limiter; run without it if absent.
	var writeLimiter *middleware.RateLimiter
	if redisClient, err := database.NewRedisClient(cfg); err != nil {
		log.Printf("Redis unavailable, rate limiting disabled: %v", err)
	} else {
		writeLimiter = middleware.NewRecipeWriteRateLimiter(redisClient)
	}

	s3Config, err := config.NewS3Config(context.Background())
	if err != nil {
		log.Fatalf("Failed to configure S3 storage: %v", err)
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	imageService := service.NewImageService(cfg.MediaDir, s3Config)
	recipeService := service.NewRecipeService(db, imageService)
	listService := service.NewListService(db)
	subscriptionService := service.NewSubscriptionService(db)

	engine := router.SetupRouter(router.Deps{
		DB:            db,
		Auth:          authService,
		Recipes:       recipeService,
		Lists:         listService,
		Subscriptions: subscriptionService,
		WriteLimiter:  writeLimiter,
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := server.New(cfg, engine)

	errChan := make(chan error, 1)
	go func() {
		log.Println("Starting server...")
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
