package users

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// Service manages library accounts: librarians, admins and the members who
// borrow copies.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

type CreateUserOptions struct {
	Username string
	Email    *string
	Password string
	RoleID   int
}

// onLoanCount counts the copies currently on loan to each user row.
const onLoanCount = `(SELECT COUNT(*) FROM book_instances AS bi WHERE bi.borrower_id = u.id AND bi.status = 'o') AS loan_count`

func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     opts.Username,
		Email:        opts.Email,
		PasswordHash: hashedPassword,
		RoleID:       opts.RoleID,
		IsActive:     true,
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := checkUsernameAvailable(ctx, tx, user.Username, 0); err != nil {
			return err
		}
		if err := checkEmailAvailable(ctx, tx, user.Email, 0); err != nil {
			return err
		}
		if err := checkRole(ctx, tx, user.RoleID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(user).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, user.ID)
}

func checkUsernameAvailable(ctx context.Context, tx bun.IDB, username string, exceptID int) error {
	exists, err := tx.NewSelect().
		Model((*models.User)(nil)).
		Where("username = ? COLLATE NOCASE", username).
		Where("id != ?", exceptID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.ConstraintViolation("Username already exists")
	}
	return nil
}

func checkEmailAvailable(ctx context.Context, tx bun.IDB, email *string, exceptID int) error {
	if email == nil || *email == "" {
		return nil
	}
	exists, err := tx.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ? COLLATE NOCASE", *email).
		Where("id != ?", exceptID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.ConstraintViolation("Email already exists")
	}
	return nil
}

func checkRole(ctx context.Context, tx bun.IDB, roleID int) error {
	exists, err := tx.NewSelect().
		Model((*models.Role)(nil)).
		Where("id = ?", roleID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.FieldValidationError("role_id", "Invalid role ID")
	}
	return nil
}

// Retrieve loads a user with their role, permissions and on-loan count.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		ColumnExpr("u.*").
		ColumnExpr(onLoanCount).
		Relation("Role").
		Relation("Role.Permissions").
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

type ListOptions struct {
	Limit      int
	Offset     int
	ActiveOnly bool
	// Borrowing limits the list to users with at least one copy on loan.
	Borrowing bool
	Search    *string
}

// List returns a page of users ordered by username, plus the total count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	query := s.db.NewSelect().
		Model(&users).
		ColumnExpr("u.*").
		ColumnExpr(onLoanCount).
		Relation("Role").
		Order("u.username ASC", "u.id ASC")

	if opts.ActiveOnly {
		query = query.Where("u.is_active = ?", true)
	}
	if opts.Borrowing {
		query = query.Where("EXISTS (SELECT 1 FROM book_instances AS bi WHERE bi.borrower_id = u.id AND bi.status = ?)", models.LoanStatusOnLoan)
	}
	if opts.Search != nil && *opts.Search != "" {
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(*opts.Search)
		query = query.Where("u.username LIKE ? ESCAPE '\\'", "%"+escaped+"%")
	}
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

	return users, total, nil
}

type UpdateOptions struct {
	Columns []string
}

// Update writes the named columns. Usernames, emails and roles are checked
// the same way Create checks them.
func (s *Service) Update(ctx context.Context, user *models.User, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, column := range opts.Columns {
			var err error
			switch column {
			case "username":
				err = checkUsernameAvailable(ctx, tx, user.Username, user.ID)
			case "email":
				err = checkEmailAvailable(ctx, tx, user.Email, user.ID)
			case "role_id":
				err = checkRole(ctx, tx, user.RoleID)
			case "is_active":
				if !user.IsActive {
					err = checkNoLoans(ctx, tx, user.ID)
				}
			}
			if err != nil {
				return err
			}
		}

		user.UpdatedAt = time.Now()
		res, err := tx.NewUpdate().
			Model(user).
			Column(append(opts.Columns, "updated_at")...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errcodes.NotFound("User")
		}
		return nil
	})
}

func (s *Service) ResetPassword(ctx context.Context, userID int, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hashedPassword).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}

func (s *Service) VerifyPassword(ctx context.Context, userID int, password string) (bool, error) {
	var hash string
	err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Column("password_hash").
		Where("id = ?", userID).
		Scan(ctx, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, errcodes.NotFound("User")
		}
		return false, errors.WithStack(err)
	}

	return auth.CheckPassword(password, hash), nil
}

func checkNoLoans(ctx context.Context, tx bun.IDB, userID int) error {
	onLoan, err := tx.NewSelect().
		Model((*models.BookInstance)(nil)).
		Where("borrower_id = ?", userID).
		Where("status = ?", models.LoanStatusOnLoan).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if onLoan {
		return errcodes.ConstraintViolation("User can't be deactivated while they have copies on loan")
	}
	return nil
}

// Deactivate disables an account. Accounts still holding copies stay active
// until the copies are returned.
func (s *Service) Deactivate(ctx context.Context, userID int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := checkNoLoans(ctx, tx, userID); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("is_active = ?", false).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", userID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errcodes.NotFound("User")
		}
		return nil
	})
}
