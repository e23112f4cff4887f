package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/brojonat/dustwatch/service/db"
)

const usage = `usage: migrate <command>

commands:
  up         apply all pending migrations
  down [N]   roll back N migrations (default 1)
  version    print the current schema version

DATABASE_URL must be set.`

// Applies or rolls back the embedded report schema migrations.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(os.Args[1:], os.Getenv("DATABASE_URL"), logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, databaseURL string, logger *slog.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch args[0] {
	case "up":
		return db.Migrate(databaseURL, logger)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step count %q: %w", args[1], err)
			}
			steps = n
		}
		return db.Rollback(databaseURL, steps, logger)
	case "version":
		version, dirty, err := db.MigrationVersion(databaseURL)
		if err != nil {
			return err
		}
		logger.Info("schema version", "version", version, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
