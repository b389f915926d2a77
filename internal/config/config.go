package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	FrontendURL string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Physics tuning. Units are board-plane units and seconds; angles are
	// radians.
	Gravity             float64
	Damping             float64
	Restitution         float64
	MaxTilt             float64
	SimulationHz        int
	CollisionIterations int
	BallRadius          float64
	HoleRadius          float64

	// Run settings
	BroadcastHz         int
	RunExpiryMinutes    int
	SnapshotTTLSeconds  int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
	AdminToken        string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/labyrinth?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Physics
		Gravity:             getEnvFloat("PHYSICS_GRAVITY", 50.0),
		Damping:             getEnvFloat("PHYSICS_DAMPING", 0.4),
		Restitution:         getEnvFloat("PHYSICS_RESTITUTION", 0.45),
		MaxTilt:             getEnvFloat("PHYSICS_MAX_TILT", 0.5),
		SimulationHz:        getEnvInt("PHYSICS_SIMULATION_HZ", 120),
		CollisionIterations: getEnvInt("PHYSICS_COLLISION_ITERATIONS", 4),
		BallRadius:          getEnvFloat("PHYSICS_BALL_RADIUS", 2.0),
		HoleRadius:          getEnvFloat("PHYSICS_HOLE_RADIUS", 2.5),

		// Runs
		BroadcastHz:        getEnvInt("RUN_BROADCAST_HZ", 30),
		RunExpiryMinutes:   getEnvInt("RUN_EXPIRY_MINUTES", 10),
		SnapshotTTLSeconds: getEnvInt("RUN_SNAPSHOT_TTL_SECONDS", 3600),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 1440),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
