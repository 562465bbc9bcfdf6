package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE VIRTUAL TABLE books_fts USING fts5(
				book_id UNINDEXED,
				title,
				author,
				tokenize = 'unicode61 remove_diacritics 2'
			)
`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS books_fts`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
