// Command migrate applies the database schema and exits. Production
// deployments run this explicitly instead of relying on startup AutoMigrate.
package main

import (
	"fmt"
	"log"

	"loom/internal/config"
	"loom/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Connect without the implicit non-production AutoMigrate, then migrate
	// explicitly so the command behaves the same in every environment.
	cfg.Env = "production"
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("migrations applied")
	return nil
}
