// Package migrations holds the schema history for the catalog database.
package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// NewMigrator returns a migrator over every registered migration, tracked in
// the locallibrary_migrations tables.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations,
		migrate.WithTableName("locallibrary_migrations"),
		migrate.WithLocksTableName("locallibrary_migration_locks"),
	)
}

// BringUpToDate creates the bookkeeping tables if needed and applies every
// pending migration as one group. The returned group is empty when there was
// nothing to run.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply migrations")
	}
	return group, nil
}
