package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/khuttun/labyrinth/internal/admin"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/level"
)

// RequireAdmin validates the X-Admin-Name / X-Admin-Token header pair
func RequireAdmin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetHeader("X-Admin-Name")
		token := c.GetHeader("X-Admin-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		if err := admin.ValidateAdminToken(db, cfg, name, token); err != nil {
			log.Printf("[ADMIN] Rejected %q from %s: %v", name, c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin credentials"})
			return
		}
		c.Next()
	}
}

// UploadLevel validates and stores a level document posted as JSON
func UploadLevel(store *level.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		doc, err := level.Parse(body)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		// A document that parses must also produce a playable board.
		if _, err := doc.Board(cfg.HoleRadius); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		id, err := store.Put(c.Request.Context(), doc)
		if err != nil {
			log.Printf("UploadLevel error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		log.Printf("[ADMIN] Level %q stored as id %d", doc.Name, id)
		c.JSON(http.StatusCreated, gin.H{"id": id, "name": doc.Name})
	}
}

// DeleteLevel removes a stored level
func DeleteLevel(store *level.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level id"})
			return
		}
		if err := store.Delete(c.Request.Context(), id); err != nil {
			if errors.Is(err, level.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "level not found"})
				return
			}
			log.Printf("DeleteLevel error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		log.Printf("[ADMIN] Level %d deleted", id)
		c.Status(http.StatusNoContent)
	}
}
