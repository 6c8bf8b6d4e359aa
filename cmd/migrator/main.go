package main

import (
	"flag"
	"log"
	"strings"

	"slothsafe/internal/platform/config"
	"slothsafe/internal/platform/db"
)

// Migrator applies the embedded Postgres schema for the vote ledger and the
// grant outbox.
func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	action := flag.String("action", db.MigrateUp, "up, down, force or version")
	steps := flag.Int("steps", 0, "steps for up/down (0 = all), target version for force")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	result, err := db.Migrate(cfg.Storage.PostgresDSN, *action, *steps)
	if err != nil {
		log.Fatalf("migration %s failed: %v", *action, err)
	}
	log.Printf("migration %s done: version=%d dirty=%t", *action, result.Version, result.Dirty)
}
