package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-visitors/internal/models"
)

var tables = []interface{}{
	(*models.User)(nil),
	(*models.TicketPrice)(nil),
	(*models.Visitor)(nil),
}

// CreateTables builds the schema from the bun models. It serves the drivers
// that golang-migrate is not wired for (MySQL, SQLite).
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS.
	if db.Dialect().Name() == dialect.MySQL {
		return nil
	}
	indexes := []struct{ name, column string }{
		{"idx_visitors_visit_date", "visit_date"},
		{"idx_visitors_type", "type"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model((*models.Visitor)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropTables removes every table, children first.
func DropTables(ctx context.Context, db *bun.DB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}
