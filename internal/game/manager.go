package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrRunNotFound is returned when a run token does not match an active run.
var ErrRunNotFound = errors.New("run not found")

// RunManager owns all active runs. Runs live in memory; finished runs are
// persisted to Postgres and the latest snapshot of every active run is
// mirrored to Redis so a restarted server can tell clients what happened.
// Both stores are optional: with neither configured the game still runs,
// it just forgets.
type RunManager struct {
	runs map[string]*Run // keyed by run token
	rdb  *redis.Client
	db   *sqlx.DB
	cfg  *config.Config
	mu   sync.RWMutex

	stop chan struct{}
}

// Manager is the global run manager instance.
var Manager *RunManager

// InitializeManager initializes the global run manager with Postgres, Redis
// and config, and starts the background expiry checker.
func InitializeManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	Manager = NewRunManager(db, rdb, cfg)
	go Manager.StartExpiryChecker()
}

// NewRunManager creates a run manager.
func NewRunManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *RunManager {
	return &RunManager{
		runs: make(map[string]*Run),
		rdb:  rdb,
		db:   db,
		cfg:  cfg,
		stop: make(chan struct{}),
	}
}

// generateToken generates a secure random token.
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateRunID generates a unique run ID.
func generateRunID() string {
	return "run_" + generateToken(8)
}

// SimulatorConfig derives the physics tuning from the application config.
func SimulatorConfig(cfg *config.Config) Config {
	return Config{
		Gravity:             cfg.Gravity,
		Damping:             cfg.Damping,
		Restitution:         cfg.Restitution,
		MaxTilt:             cfg.MaxTilt,
		FixedTimestep:       1.0 / float64(cfg.SimulationHz),
		CollisionIterations: cfg.CollisionIterations,
	}
}

// CreateRun starts a new attempt at a level. playerID is 0 and playerName ""
// for anonymous runs. pilot may be nil for a human-controlled run.
func (rm *RunManager) CreateRun(levelID int, levelName string, board *Board, pilot Pilot, playerID int, playerName string) (*Run, error) {
	sim, err := NewSimulator(SimulatorConfig(rm.cfg))
	if err != nil {
		return nil, fmt.Errorf("simulator config: %w", err)
	}

	run := NewRun(generateRunID(), generateToken(16), levelID, levelName, board, sim, rm.cfg.BallRadius, pilot)
	run.PlayerID = playerID
	run.PlayerName = playerName

	rm.mu.Lock()
	rm.runs[run.Token] = run
	rm.mu.Unlock()

	if rm.db != nil {
		var dbID int
		err := rm.db.Get(&dbID, `
			INSERT INTO runs (run_token, level_id, player_id, player_name, outcome, duration_ms, started_at)
			VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, ''), $5, 0, NOW())
			RETURNING id`,
			run.Token, levelID, playerID, playerName, string(RunInProgress))
		if err != nil {
			log.Printf("[RUN] Failed to persist run %s: %v", run.ID, err)
		} else {
			run.mu.Lock()
			run.dbID = dbID
			run.mu.Unlock()
		}
	}

	log.Printf("[RUN] Created %s on level %d (%s) for %q", run.ID, levelID, levelName, playerName)
	return run, nil
}

// Get returns the active run for a token.
func (rm *RunManager) Get(token string) (*Run, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	run, ok := rm.runs[token]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ActiveCount returns the number of runs currently held in memory.
func (rm *RunManager) ActiveCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.runs)
}

// SaveSnapshot mirrors a run snapshot to Redis with a TTL. Best effort.
func (rm *RunManager) SaveSnapshot(run *Run, snap Snapshot) {
	if rm.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := "run:" + run.Token + ":state"
	ttl := time.Duration(rm.cfg.SnapshotTTLSeconds) * time.Second
	if err := rm.rdb.SetEx(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[RUN] Failed to save snapshot for %s: %v", run.ID, err)
	}
}

// LoadSnapshot reads the last mirrored snapshot for a token, for clients
// reconnecting after the in-memory run is gone.
func (rm *RunManager) LoadSnapshot(token string) (*Snapshot, error) {
	if rm.rdb == nil {
		return nil, ErrRunNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := rm.rdb.Get(ctx, "run:"+token+":state").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Finish records a terminal snapshot: the runs row is completed, player
// stats are bumped and a won run goes onto the level leaderboard. The run
// stays in memory so the client can restart it; Restart later flips the
// persisted state back via a fresh row.
func (rm *RunManager) Finish(run *Run, snap Snapshot) {
	log.Printf("[RUN] %s finished: %s in %dms", run.ID, snap.Status, snap.ElapsedMs)

	if rm.db != nil {
		run.mu.Lock()
		dbID := run.dbID
		run.mu.Unlock()
		if dbID != 0 {
			_, err := rm.db.Exec(`
				UPDATE runs SET outcome = $1, duration_ms = $2, completed_at = NOW()
				WHERE id = $3`,
				string(snap.Status), snap.ElapsedMs, dbID)
			if err != nil {
				log.Printf("[RUN] Failed to complete run %s: %v", run.ID, err)
			}
		}
		if run.PlayerID != 0 {
			wonDelta := 0
			if snap.Status == RunWon {
				wonDelta = 1
			}
			_, err := rm.db.Exec(`
				UPDATE players
				SET total_runs = total_runs + 1, total_wins = total_wins + $1, last_active = NOW()
				WHERE id = $2`,
				wonDelta, run.PlayerID)
			if err != nil {
				log.Printf("[RUN] Failed to update player stats for %d: %v", run.PlayerID, err)
			}
		}
	}

	if snap.Status == RunWon && run.PlayerName != "" {
		rm.recordBestTime(run, snap.ElapsedMs)
	}

	rm.SaveSnapshot(run, snap)
}

// recordBestTime pushes a winning time onto the per-level leaderboard.
// ZADD LT keeps only the member's lowest score, so replays can only improve
// a player's entry.
func (rm *RunManager) recordBestTime(run *Run, durationMs int64) {
	if rm.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := fmt.Sprintf("leaderboard:level:%d", run.LevelID)
	err := rm.rdb.ZAddLT(ctx, key, redis.Z{
		Score:  float64(durationMs),
		Member: run.PlayerName,
	}).Err()
	if err != nil {
		log.Printf("[RUN] Failed to record best time for %s: %v", run.PlayerName, err)
	}
}

// Leaderboard returns the fastest winning times for a level, best first.
// Served from the Redis sorted set when available, otherwise computed from
// the runs table.
func (rm *RunManager) Leaderboard(ctx context.Context, levelID, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	if rm.rdb != nil {
		key := fmt.Sprintf("leaderboard:level:%d", levelID)
		zs, err := rm.rdb.ZRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
		if err == nil && len(zs) > 0 {
			entries := make([]models.LeaderboardEntry, 0, len(zs))
			for _, z := range zs {
				name, _ := z.Member.(string)
				entries = append(entries, models.LeaderboardEntry{
					PlayerName: name,
					BestMs:     int64(z.Score),
				})
			}
			return entries, nil
		}
		if err != nil {
			log.Printf("[RUN] Redis leaderboard read failed, falling back to DB: %v", err)
		}
	}

	if rm.db == nil {
		return []models.LeaderboardEntry{}, nil
	}
	var entries []models.LeaderboardEntry
	err := rm.db.SelectContext(ctx, &entries, `
		SELECT player_name, MIN(duration_ms) AS best_ms
		FROM runs
		WHERE level_id = $1 AND outcome = $2 AND player_name IS NOT NULL
		GROUP BY player_name
		ORDER BY best_ms ASC
		LIMIT $3`,
		levelID, string(RunWon), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	return entries, nil
}

// Remove drops a run from memory, marking it abandoned if still in progress.
func (rm *RunManager) Remove(token string) {
	rm.mu.Lock()
	run, ok := rm.runs[token]
	if ok {
		delete(rm.runs, token)
	}
	rm.mu.Unlock()
	if !ok {
		return
	}

	if run.Status() == RunInProgress {
		run.abandon()
		rm.Finish(run, run.Snapshot())
	}
	rm.publishRunEvent(run, "run_expired")
	log.Printf("[RUN] Removed %s", run.ID)
}

// publishRunEvent notifies the websocket layer about a run state change made
// outside the websocket path.
func (rm *RunManager) publishRunEvent(run *Run, eventType string) {
	if rm.rdb == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":   eventType,
		"run_id": run.ID,
		"status": string(run.Status()),
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rm.rdb.Publish(ctx, "run_events", payload).Err(); err != nil {
		log.Printf("[RUN] Failed to publish %s for %s: %v", eventType, run.ID, err)
	}
}

// StartExpiryChecker runs a background job that abandons idle runs.
func (rm *RunManager) StartExpiryChecker() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rm.checkExpiredRuns()
		case <-rm.stop:
			return
		}
	}
}

// Stop terminates the background expiry checker.
func (rm *RunManager) Stop() {
	close(rm.stop)
}

func (rm *RunManager) checkExpiredRuns() {
	maxIdle := time.Duration(rm.cfg.RunExpiryMinutes) * time.Minute
	cutoff := time.Now().Add(-maxIdle)

	rm.mu.RLock()
	var expired []string
	for token, run := range rm.runs {
		if run.LastActivity().Before(cutoff) {
			expired = append(expired, token)
		}
	}
	rm.mu.RUnlock()

	for _, token := range expired {
		rm.Remove(token)
	}
	if len(expired) > 0 {
		log.Printf("[RUN] Expired %d idle runs", len(expired))
	}
}
