package yoga

import (
	"context"
	"database/sql"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	_ "github.com/lib/pq"
)

// OpenDB opens a bun database for dsn. postgres:// and postgresql://
// URLs use lib/pq, anything else is handed to the sqlite shim.
func OpenDB(ctx context.Context, dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, goerrors.New("database url is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_CONFIG")
	}

	if isPostgresDSN(dsn) {
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		return pingDB(ctx, bun.NewDB(sqldb, pgdialect.New()))
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
	}
	sqldb.SetMaxOpenConns(1)

	db, err := pingDB(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable sqlite foreign keys")
	}

	return db, nil
}

func pingDB(ctx context.Context, db *bun.DB) (*bun.DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reach database")
	}
	return db, nil
}

func isPostgresDSN(dsn string) bool {
	dsn = strings.ToLower(dsn)
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
