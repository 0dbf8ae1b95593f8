package sync

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// applyMigrations brings the state database schema up to date. Migrations
// are embedded SQL files applied through a goose Provider, so a freshly
// created database and an upgraded one end up with identical schemas.
func applyMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// goose expects the SQL files at the root of the filesystem it is given.
	migrations, err := fs.Sub(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("sync: opening embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("sync: building migration provider: %w", err)
	}

	applied, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("sync: migrating state database: %w", err)
	}

	for _, m := range applied {
		logger.Debug("applied schema migration", slog.String("source", m.Source.Path))
	}

	return nil
}
