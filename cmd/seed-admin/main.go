package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/khuttun/labyrinth/internal/admin"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Seed admin account
	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "admin"
		log.Printf("Using default admin name: %s", name)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	if err := admin.CreateAdminAccount(db, name, adminToken); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("✓ Admin account created/updated successfully")
	log.Printf("  Name: %s", name)
	log.Println("\nLevel management endpoints accept:")
	log.Printf("  X-Admin-Name: %s", name)
	log.Printf("  X-Admin-Token: %s", adminToken)
}
