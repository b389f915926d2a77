package admin

import (
	"testing"

	"github.com/khuttun/labyrinth/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyAdminToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyAdminToken(string(hash), "s3cret") {
		t.Error("correct token rejected")
	}
	if VerifyAdminToken(string(hash), "wrong") {
		t.Error("wrong token accepted")
	}
}

func TestValidateAdminTokenEnvFallback(t *testing.T) {
	cfg := &config.Config{AdminToken: "static-token"}

	if err := ValidateAdminToken(nil, cfg, "admin", "static-token"); err != nil {
		t.Errorf("static token rejected: %v", err)
	}
	if err := ValidateAdminToken(nil, cfg, "admin", "wrong"); err == nil {
		t.Error("wrong static token accepted")
	}

	// No database and no static token means no admin access at all.
	if err := ValidateAdminToken(nil, &config.Config{}, "admin", "anything"); err == nil {
		t.Error("admin access granted with nothing configured")
	}
}
