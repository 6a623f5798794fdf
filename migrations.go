package yoga

import (
	"context"
	"io/fs"
	"path"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

const migrationsRoot = "data/sql/migrations"

// NewMigrations loads the embedded SQL migrations for the given dialect
func NewMigrations(name dialect.Name) (*migrate.Migrations, error) {
	dir := "sqlite"
	if name == dialect.PG {
		dir = "postgres"
	}

	sub, err := fs.Sub(GetMigrationsFS(), path.Join(migrationsRoot, dir))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open migrations")
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sub); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to discover migrations").
			WithMetadata(map[string]any{"dialect": dir})
	}

	return migrations, nil
}

// Migrate applies every pending migration
func Migrate(ctx context.Context, db *bun.DB, logger Logger) error {
	return withMigrator(ctx, db, func(m *migrate.Migrator) error {
		group, err := m.Migrate(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate database")
		}

		if group.IsZero() {
			logger.Info("database is up to date")
			return nil
		}

		logger.Info("migrated to %s", group)
		return nil
	})
}

// Rollback reverts the last migration group
func Rollback(ctx context.Context, db *bun.DB, logger Logger) error {
	return withMigrator(ctx, db, func(m *migrate.Migrator) error {
		group, err := m.Rollback(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rollback database")
		}

		if group.IsZero() {
			logger.Info("there are no groups to roll back")
			return nil
		}

		logger.Info("rolled back %s", group)
		return nil
	})
}

func withMigrator(ctx context.Context, db *bun.DB, fn func(m *migrate.Migrator) error) error {
	migrations, err := NewMigrations(db.Dialect().Name())
	if err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to init migrations")
	}

	if err := migrator.Lock(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to lock migrations")
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	return fn(migrator)
}
