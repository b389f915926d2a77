package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/khuttun/labyrinth/internal/game"
	"github.com/khuttun/labyrinth/internal/level"
)

// ListLevels returns id and name of every available level
func ListLevels(store *level.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := store.List(c.Request.Context())
		if err != nil {
			log.Printf("ListLevels error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"levels": recs})
	}
}

// GetLevel returns the full level document
func GetLevel(store *level.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level id"})
			return
		}
		doc, err := store.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, level.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "level not found"})
				return
			}
			log.Printf("GetLevel error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// GetLeaderboard returns the fastest winning times for a level
func GetLeaderboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level id"})
			return
		}
		limit := 10
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		entries, err := game.Manager.Leaderboard(c.Request.Context(), id, limit)
		if err != nil {
			log.Printf("GetLeaderboard error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"level_id": id, "entries": entries})
	}
}
