package models

import (
	"database/sql"
	"time"
)

// Player represents a registered player.
type Player struct {
	ID         int          `db:"id" json:"id"`
	Name       string       `db:"name" json:"name"`
	SecretHash string       `db:"secret_hash" json:"-"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	TotalRuns  int          `db:"total_runs" json:"total_runs"`
	TotalWins  int          `db:"total_wins" json:"total_wins"`
	LastActive sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// LevelRecord is one stored level. Document holds the raw level JSON as
// authored; the level loader parses and validates it on read.
type LevelRecord struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Document  []byte    `db:"document" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RunRecord is one finished (or abandoned) level attempt.
type RunRecord struct {
	ID          int            `db:"id" json:"id"`
	RunToken    string         `db:"run_token" json:"run_token"`
	LevelID     int            `db:"level_id" json:"level_id"`
	PlayerID    sql.NullInt64  `db:"player_id" json:"player_id,omitempty"`
	PlayerName  sql.NullString `db:"player_name" json:"player_name,omitempty"`
	Outcome     string         `db:"outcome" json:"outcome"`
	DurationMs  int64          `db:"duration_ms" json:"duration_ms"`
	StartedAt   time.Time      `db:"started_at" json:"started_at"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// LeaderboardEntry is one row of a per-level best-time leaderboard.
type LeaderboardEntry struct {
	PlayerName string `db:"player_name" json:"player_name"`
	BestMs     int64  `db:"best_ms" json:"best_ms"`
}

// AdminAccount is a level-management account. Token is stored bcrypt-hashed.
type AdminAccount struct {
	Name      string    `db:"name" json:"name"`
	TokenHash string    `db:"token_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
