package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khuttun/labyrinth/internal/ai"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/game"
	"github.com/khuttun/labyrinth/internal/level"
)

// CreateRun starts a new attempt at a level. Demo runs are driven by the
// waypoint autopilot instead of client tilt messages. Authentication is
// optional: a valid Bearer token attaches the run to the player, its absence
// makes the run anonymous.
func CreateRun(store *level.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			LevelID int  `json:"level_id"`
			Demo    bool `json:"demo"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level_id required"})
			return
		}

		doc, err := store.Get(c.Request.Context(), req.LevelID)
		if err != nil {
			if errors.Is(err, level.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "level not found"})
				return
			}
			log.Printf("CreateRun level load error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		board, err := doc.Board(cfg.HoleRadius)
		if err != nil {
			log.Printf("CreateRun board error for level %d: %v", req.LevelID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "level has invalid geometry"})
			return
		}

		var pilot game.Pilot
		if req.Demo {
			tracer, err := ai.NewPathTracer(doc.Waypoints(), cfg.MaxTilt)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "level has no demo path"})
				return
			}
			pilot = tracer
		}

		playerID, playerName, err := playerFromRequest(c, cfg)
		if err != nil {
			playerID, playerName = 0, ""
		}

		run, err := game.Manager.CreateRun(req.LevelID, doc.Name, board, pilot, playerID, playerName)
		if err != nil {
			log.Printf("CreateRun error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"run_id":     run.ID,
			"run_token":  run.Token,
			"level_id":   run.LevelID,
			"level_name": run.LevelName,
			"demo":       req.Demo,
			"ws_url":     fmt.Sprintf("/api/v1/runs/%s/ws", run.Token),
			"state":      run.Snapshot(),
		})
	}
}

// GetRun returns the current snapshot of a run. For runs that have dropped
// out of memory the Redis mirror still answers with the final state.
func GetRun() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		run, err := game.Manager.Get(token)
		if err == nil {
			run.Touch()
			c.JSON(http.StatusOK, gin.H{
				"run_id":     run.ID,
				"level_id":   run.LevelID,
				"level_name": run.LevelName,
				"state":      run.Snapshot(),
			})
			return
		}

		if snap, serr := game.Manager.LoadSnapshot(token); serr == nil {
			c.JSON(http.StatusOK, gin.H{"state": snap, "expired": true})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	}
}
