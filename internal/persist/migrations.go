package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies pending archive schema migrations and returns the schema
// version the archive ends up at.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("archive migrations: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	p, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return 0, fmt.Errorf("archive migrations: %w", err)
	}
	applied, err := p.Up(ctx)
	for _, r := range applied {
		db.log.Info("存檔庫 schema 已升級",
			zap.Int64("version", r.Source.Version),
			zap.Duration("took", r.Duration))
	}
	if err != nil {
		return 0, fmt.Errorf("upgrade archive schema: %w", err)
	}
	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("archive schema version: %w", err)
	}
	return version, nil
}
