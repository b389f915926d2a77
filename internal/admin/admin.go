// Package admin validates level-management credentials. Admin accounts live
// in Postgres with bcrypt-hashed tokens; a static token from the environment
// serves as a fallback so level uploads work without a database.
package admin

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// GetAdminAccount retrieves an admin account by name
func GetAdminAccount(db *sqlx.DB, name string) (*models.AdminAccount, error) {
	var account models.AdminAccount
	err := db.Get(&account, `SELECT name, token_hash, created_at, updated_at FROM admin_accounts WHERE name=$1`, name)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// CreateAdminAccount creates or updates an admin account (used for seeding)
func CreateAdminAccount(db *sqlx.DB, name, plainToken string) error {
	hashedToken, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO admin_accounts (name, token_hash, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			updated_at = NOW()
	`, name, string(hashedToken))

	return err
}

// ValidateAdminToken validates a name + token pair against the database,
// falling back to the static ADMIN_TOKEN when no database is configured.
func ValidateAdminToken(db *sqlx.DB, cfg *config.Config, name, token string) error {
	if db != nil {
		account, err := GetAdminAccount(db, name)
		switch {
		case err == nil:
			if !VerifyAdminToken(account.TokenHash, token) {
				log.Printf("[ADMIN] Token verification failed for %q", name)
				return errors.New("invalid token")
			}
			return nil
		case errors.Is(err, sql.ErrNoRows):
			log.Printf("[ADMIN] No admin account named %q", name)
		default:
			return fmt.Errorf("database error: %w", err)
		}
	}

	if cfg.AdminToken == "" {
		return errors.New("admin access not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.AdminToken)) != 1 {
		return errors.New("invalid token")
	}
	return nil
}
