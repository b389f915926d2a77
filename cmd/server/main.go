package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/khuttun/labyrinth/internal/api"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/database"
	"github.com/khuttun/labyrinth/internal/game"
	"github.com/khuttun/labyrinth/internal/level"
	"github.com/khuttun/labyrinth/internal/migrations"
	"github.com/khuttun/labyrinth/internal/redis"
	"github.com/khuttun/labyrinth/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database. The server degrades gracefully without one:
	// built-in levels are served from memory and nothing is persisted.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Not available, running without persistence: %v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	// Run migrations on start if requested
	if db != nil && os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis. Also optional: without it there are no snapshot
	// mirrors and the leaderboard falls back to the database.
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Printf("[REDIS] Not available, running without snapshot mirror: %v", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// Initialize the level store and seed built-in levels
	store, err := level.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to load levels: %v", err)
	}
	if err := store.Seed(context.Background()); err != nil {
		log.Printf("[LEVEL] Seeding failed: %v", err)
	}

	// Initialize the run manager with Postgres, Redis and config
	game.InitializeManager(db, rdb, cfg)

	// Wire Redis into the WS layer and start the run event subscriber
	ws.SetRedisClient(rdb, cfg)
	ws.StartRunEventSubscriber(context.Background())

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, db, store, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Labyrinth server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
