package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/khuttun/labyrinth/internal/api/handlers"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/level"
	"github.com/khuttun/labyrinth/internal/middleware"
	"github.com/khuttun/labyrinth/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, store *level.Store, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			// Aggressive no-cache for development
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Level endpoints
		levels := v1.Group("/levels")
		{
			levels.GET("", handlers.ListLevels(store))
			levels.GET("/:id", handlers.GetLevel(store))
			levels.GET("/:id/leaderboard", handlers.GetLeaderboard())
		}

		// Run endpoints
		runs := v1.Group("/runs")
		{
			runs.POST("", handlers.CreateRun(store, cfg))
			runs.GET("/:token", handlers.GetRun())
			runs.GET("/:token/ws", ws.HandleWebSocket)
		}

		// Player endpoints
		player := v1.Group("/player")
		{
			player.POST("/register", handlers.RegisterPlayer(db, cfg))
			player.POST("/login", handlers.LoginPlayer(db, cfg))
			player.GET("/me", handlers.RequireAuth(cfg), handlers.GetPlayerProfile(db))
		}

		// Admin endpoints
		adminGroup := v1.Group("/admin", handlers.RequireAdmin(db, cfg))
		{
			adminGroup.POST("/levels", handlers.UploadLevel(store, cfg))
			adminGroup.DELETE("/levels/:id", handlers.DeleteLevel(store))
		}
	}
}
