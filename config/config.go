package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT      string
	DB_DRIVER string
	DB_URL    string

	SUPABASE_URL        string
	SUPABASE_ANON_KEY   string
	SUPABASE_JWT_SECRET string

	CORS_ORIGIN             string
	ADMIN_ROLE              string
	PASSWORD_RESET_REDIRECT string

	// Google sign-in. An empty frontend redirect returns the session as JSON.
	OAUTH_CALLBACK_URL      string
	OAUTH_FRONTEND_REDIRECT string

	// Cron spec for the plan-cache sweep. Empty disables it.
	RECONCILE_SCHEDULE string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_DRIVER = getEnv("DB_DRIVER", "postgres")
	DB_URL = mustEnv("DB_URL")

	SUPABASE_URL = mustEnv("SUPABASE_URL")
	SUPABASE_ANON_KEY = mustEnv("SUPABASE_ANON_KEY")
	SUPABASE_JWT_SECRET = getEnv("SUPABASE_JWT_SECRET", "")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:3000")
	ADMIN_ROLE = getEnv("ADMIN_ROLE", "service_role")
	PASSWORD_RESET_REDIRECT = getEnv("PASSWORD_RESET_REDIRECT", "http://localhost:3000/reset-password")

	OAUTH_CALLBACK_URL = getEnv("OAUTH_CALLBACK_URL", "http://localhost:"+PORT+"/auth/google/callback")
	OAUTH_FRONTEND_REDIRECT = getEnv("OAUTH_FRONTEND_REDIRECT", "")

	RECONCILE_SCHEDULE = getEnv("RECONCILE_SCHEDULE", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
