package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// RegisterPlayer creates a player account protected by a bcrypt-hashed secret
func RegisterPlayer(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name   string `json:"name"`
			Secret string `json:"secret"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and secret required"})
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" || len(name) > 32 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-32 characters"})
			return
		}
		if len(req.Secret) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "secret must be at least 6 characters"})
			return
		}
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts unavailable without database"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("RegisterPlayer bcrypt error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		var id int
		err = db.Get(&id, `
			INSERT INTO players (name, secret_hash, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name) DO NOTHING
			RETURNING id`,
			name, string(hash))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
				return
			}
			log.Printf("RegisterPlayer insert error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, err := issueToken(cfg, id, name)
		if err != nil {
			log.Printf("Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"token": token, "player": gin.H{"id": id, "name": name}})
	}
}

// LoginPlayer validates the secret and issues a JWT
func LoginPlayer(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name   string `json:"name"`
			Secret string `json:"secret"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and secret required"})
			return
		}
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts unavailable without database"})
			return
		}

		var player models.Player
		err := db.Get(&player, `SELECT id, name, secret_hash, created_at, total_runs, total_wins, last_active FROM players WHERE name=$1`, strings.TrimSpace(req.Name))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid name or secret"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(player.SecretHash), []byte(req.Secret)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid name or secret"})
			return
		}

		if _, err := db.Exec(`UPDATE players SET last_active = NOW() WHERE id = $1`, player.ID); err != nil {
			log.Printf("LoginPlayer last_active update error: %v", err)
		}

		token, err := issueToken(cfg, player.ID, player.Name)
		if err != nil {
			log.Printf("Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "player": gin.H{
			"id":         player.ID,
			"name":       player.Name,
			"total_runs": player.TotalRuns,
			"total_wins": player.TotalWins,
		}})
	}
}

// GetPlayerProfile returns the authenticated player's stats
func GetPlayerProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetInt("player_id")
		if db == nil || playerID == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts unavailable without database"})
			return
		}

		var player models.Player
		err := db.Get(&player, `SELECT id, name, created_at, total_runs, total_wins, last_active FROM players WHERE id=$1`, playerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}
		c.JSON(http.StatusOK, player)
	}
}

// issueToken signs a session JWT for a player
func issueToken(cfg *config.Config, playerID int, name string) (string, error) {
	timeout := time.Duration(cfg.SessionTimeoutMin) * time.Minute
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	exp := time.Now().Add(timeout)
	claims := jwt.MapClaims{"player_id": playerID, "name": name, "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// RequireAuth rejects requests without a valid Bearer token
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, name, err := playerFromRequest(c, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Set("player_id", playerID)
		c.Set("player_name", name)
		c.Next()
	}
}

// playerFromRequest parses the Authorization header into a player identity.
// Returns an error when the header is absent or the token invalid.
func playerFromRequest(c *gin.Context, cfg *config.Config) (int, string, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, "", errors.New("missing bearer token")
	}
	token := strings.TrimPrefix(header, "Bearer ")

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid claims")
	}
	idFloat, ok := claims["player_id"].(float64)
	if !ok {
		return 0, "", errors.New("invalid claims")
	}
	name, _ := claims["name"].(string)
	return int(idFloat), name, nil
}
