package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/product-catalog-api/internal/platform/postgres"
)

// handleMigrations executes a goose command against the embedded migrations.
// It's called from run() when the -migrate flag is set or auto-migration is
// enabled.
func handleMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	logger.Info("Executing migrations", "command", command)
	return postgres.RunMigrations(ctx, db, command, logger)
}
