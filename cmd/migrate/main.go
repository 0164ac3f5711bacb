// Command migrate manages the visitor service schema outside the server
// process.
//
//	migrate --action up
//	migrate --action down
//	migrate --action to --version 1
//	migrate -a seed
//	migrate -a drop
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/uptrace/bun"

	"ms-visitors/internal/config"
	"ms-visitors/internal/database"
	"ms-visitors/internal/database/migrations"
	"ms-visitors/internal/logger"
)

func main() {
	action := pflag.StringP("action", "a", "up", "Migration action: up, down, to, seed or drop")
	version := pflag.Uint("version", 0, "Target version for --action to")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.NewLogger(cfg.Log.Dir, "migrate")
	defer logger.Close()

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Database.Driver, err))
	}
	defer bunDB.Close()

	if err := run(ctx, *action, *version, cfg, bunDB, logger); err != nil {
		logger.Fatal("MIGRATION", fmt.Sprintf("%s failed: %v", *action, err))
	}
	logger.Info("MIGRATION", fmt.Sprintf("✅ %s completed", *action))
}

// run versions the schema with golang-migrate on postgres. The other drivers
// have no migration files, so their schema comes from the bun models.
func run(ctx context.Context, action string, version uint, cfg *config.Config, bunDB *bun.DB, logger *logger.Logger) error {
	versioned := cfg.Database.Driver == "postgres"

	switch action {
	case "up":
		if !versioned {
			return migrations.CreateTables(ctx, bunDB)
		}
		runner := migrations.NewRunner(bunDB, logger)
		defer runner.Close()
		return runner.MigrateUp()
	case "down", "drop":
		if !versioned {
			return migrations.DropTables(ctx, bunDB)
		}
		runner := migrations.NewRunner(bunDB, logger)
		defer runner.Close()
		return runner.MigrateDown()
	case "to":
		if !versioned {
			return fmt.Errorf("--action to needs DB_DRIVER=postgres, got %s", cfg.Database.Driver)
		}
		runner := migrations.NewRunner(bunDB, logger)
		defer runner.Close()
		return runner.MigrateTo(version)
	case "seed":
		return migrations.Seed(ctx, bunDB, cfg.Seed, cfg.Auth.BcryptCost, logger)
	}
	return fmt.Errorf("unknown action %q", action)
}
