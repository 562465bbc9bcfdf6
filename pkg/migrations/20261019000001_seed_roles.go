package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	grants := map[string][][2]string{
		"admin": {
			{"catalog", "read"}, {"catalog", "write"},
			{"loans", "can_mark_returned"},
			{"users", "read"}, {"users", "write"},
		},
		"librarian": {
			{"catalog", "read"}, {"catalog", "write"},
			{"loans", "can_mark_returned"},
			{"users", "read"},
		},
		"member": {
			{"catalog", "read"},
		},
	}

	up := func(_ context.Context, db *bun.DB) error {
		for _, name := range []string{"admin", "librarian", "member"} {
			_, err := db.Exec(`INSERT INTO roles (name, is_system) VALUES (?, TRUE)`, name)
			if err != nil {
				return errors.WithStack(err)
			}

			var roleID int
			err = db.QueryRow(`SELECT id FROM roles WHERE name = ?`, name).Scan(&roleID)
			if err != nil {
				return errors.WithStack(err)
			}

			for _, grant := range grants[name] {
				_, err = db.Exec(`INSERT INTO permissions (role_id, resource, operation) VALUES (?, ?, ?)`,
					roleID, grant[0], grant[1])
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DELETE FROM permissions WHERE role_id IN (SELECT id FROM roles WHERE name IN ('admin', 'librarian', 'member'))`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DELETE FROM roles WHERE name IN ('admin', 'librarian', 'member')`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
