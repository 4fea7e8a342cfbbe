// Command seed populates the database with demo users and threads.
package main

import (
	"context"
	"flag"
	"log"

	"loom/internal/config"
	"loom/internal/database"
	"loom/internal/seed"
)

func main() {
	profilePath := flag.String("profile", "", "Path to a YAML seed profile")
	numUsers := flag.Int("users", 0, "Number of users to create (overrides profile)")
	threadsPer := flag.Int("threads", 0, "Threads per user (overrides profile)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	profile := seed.DefaultProfile
	if *profilePath != "" {
		profile, err = seed.LoadProfile(*profilePath)
		if err != nil {
			log.Fatalf("Failed to load seed profile: %v", err)
		}
	}
	if *numUsers > 0 {
		profile.Users = *numUsers
	}
	if *threadsPer > 0 {
		profile.ThreadsPerUser = *threadsPer
	}

	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Run(context.Background(), profile); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
