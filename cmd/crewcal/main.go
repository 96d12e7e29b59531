package main

import (
	"log"
	"os"

	"github.com/crewcal-dev/crewcal/db"
	"github.com/crewcal-dev/crewcal/internal/auth"
	"github.com/crewcal-dev/crewcal/internal/ratelimit"
	"github.com/crewcal-dev/crewcal/internal/router"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	if err := auth.InitSessionSecret(); err != nil {
		log.Fatalf("Failed to initialize session secret: %v", err)
	}

	if err := db.ConnectDatabase(os.Getenv("DATABASE_URL")); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		name := os.Getenv("ADMIN_NAME")
		if name == "" {
			name = "Administrator"
		}
		if err := db.SeedAdmin(name, email, os.Getenv("ADMIN_PASSWORD")); err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	limiter := ratelimit.NewInMemoryStore()
	defer limiter.Stop()

	r := router.NewRouter(limiter)

	var port string

	if port = os.Getenv("PORT"); port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
