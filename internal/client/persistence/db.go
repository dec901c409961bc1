// Package persistence opens the client's local SQLite database, applies the
// embedded schema migrations, and wires up the repositories.
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/migrations"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/history"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/metadata"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/searches"
)

type Repositories struct {
	Metadata metadata.Repository
	History  history.Repository
	Searches searches.Repository
	DB       *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		History:  history.NewSQLiteRepository(db),
		Searches: searches.NewSQLiteRepository(db),
		DB:       db,
	}, nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
