package roles

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// Grantable lists every operation a role can be given, keyed by resource.
// Loans only carry the librarian capability; there is no loans:read.
var Grantable = map[string][]string{
	models.ResourceCatalog: {models.OperationRead, models.OperationWrite},
	models.ResourceLoans:   {models.OperationMarkReturned},
	models.ResourceUsers:   {models.OperationRead, models.OperationWrite},
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

func checkGrantable(p PermissionInput) error {
	for _, op := range Grantable[p.Resource] {
		if op == p.Operation {
			return nil
		}
	}
	return errcodes.ValidationError("Permission " + p.Resource + ":" + p.Operation + " can't be granted")
}

// normalizePermissions validates every pair and drops repeats, keeping a
// stable resource/operation order.
func normalizePermissions(perms []PermissionInput) ([]PermissionInput, error) {
	seen := make(map[PermissionInput]struct{}, len(perms))
	out := make([]PermissionInput, 0, len(perms))
	for _, p := range perms {
		if err := checkGrantable(p); err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Operation < out[j].Operation
	})
	return out, nil
}

func (s *Service) checkNameAvailable(ctx context.Context, tx bun.IDB, name string, exceptID int) error {
	exists, err := tx.NewSelect().
		Model((*models.Role)(nil)).
		Where("name = ? COLLATE NOCASE", name).
		Where("id != ?", exceptID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.ConstraintViolation("A role with this name already exists")
	}
	return nil
}

func replacePermissions(ctx context.Context, tx bun.IDB, roleID int, perms []PermissionInput) error {
	_, err := tx.NewDelete().
		Model((*models.Permission)(nil)).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(perms) == 0 {
		return nil
	}

	rows := make([]*models.Permission, 0, len(perms))
	for _, p := range perms {
		rows = append(rows, &models.Permission{RoleID: roleID, Resource: p.Resource, Operation: p.Operation})
	}
	_, err = tx.NewInsert().Model(&rows).Exec(ctx)
	return errors.WithStack(err)
}

// Create adds a custom role with the given permissions.
func (s *Service) Create(ctx context.Context, name string, permissions []PermissionInput) (*models.Role, error) {
	perms, err := normalizePermissions(permissions)
	if err != nil {
		return nil, err
	}

	var roleID int
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.checkNameAvailable(ctx, tx, name, 0); err != nil {
			return err
		}

		now := time.Now()
		role := &models.Role{Name: name, CreatedAt: now, UpdatedAt: now}
		if _, err := tx.NewInsert().Model(role).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		roleID = role.ID

		return replacePermissions(ctx, tx, role.ID, perms)
	})
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, roleID)
}

func (s *Service) Retrieve(ctx context.Context, id int) (*models.Role, error) {
	return retrieve(ctx, s.db, id)
}

func retrieve(ctx context.Context, db bun.IDB, id int) (*models.Role, error) {
	role := &models.Role{}
	err := db.NewSelect().
		Model(role).
		Relation("Permissions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("p.resource ASC", "p.operation ASC")
		}).
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Role")
		}
		return nil, errors.WithStack(err)
	}
	return role, nil
}

type ListOptions struct {
	Limit  int
	Offset int
}

// List returns a page of roles along with the total count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.Role, int, error) {
	roles := []*models.Role{}

	query := s.db.NewSelect().
		Model(&roles).
		Relation("Permissions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("p.resource ASC", "p.operation ASC")
		}).
		Order("r.id ASC")

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return roles, total, nil
}

// Update renames a role and/or replaces its permissions. System roles keep
// their names but their permissions can be changed.
func (s *Service) Update(ctx context.Context, id int, name *string, permissions *[]PermissionInput) (*models.Role, error) {
	var perms []PermissionInput
	if permissions != nil {
		var err error
		perms, err = normalizePermissions(*permissions)
		if err != nil {
			return nil, err
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		role, err := retrieve(ctx, tx, id)
		if err != nil {
			return err
		}

		columns := []string{"updated_at"}
		if name != nil && *name != role.Name {
			if role.IsSystem {
				return errcodes.Forbidden("System roles can't be renamed")
			}
			if err := s.checkNameAvailable(ctx, tx, *name, id); err != nil {
				return err
			}
			role.Name = *name
			columns = append(columns, "name")
		}

		role.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(role).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if permissions == nil {
			return nil
		}
		return replacePermissions(ctx, tx, id, perms)
	})
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, id)
}

// Delete removes a custom role that no user holds.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		role, err := retrieve(ctx, tx, id)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return errcodes.Forbidden("System roles can't be deleted")
		}

		count, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("role_id = ?", id).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count > 0 {
			return errcodes.ConstraintViolation("Role can't be deleted while users hold it")
		}

		_, err = tx.NewDelete().
			Model((*models.Permission)(nil)).
			Where("role_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Role)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
