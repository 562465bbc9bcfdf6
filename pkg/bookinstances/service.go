package bookinstances

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/database"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveInstanceOptions struct {
	ID string
}

type ListInstancesOptions struct {
	Limit  *int
	Offset *int
	BookID *int
	Status *models.LoanStatus

	includeTotal bool
}

type UpdateInstanceOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateInstance adds a physical copy of a book. Copies get a random UUID and
// start in maintenance unless a status is given. On loan can only be reached
// through a loan, so it is rejected here.
func (svc *Service) CreateInstance(ctx context.Context, instance *models.BookInstance) error {
	if instance.Status == "" {
		instance.Status = models.LoanStatusMaintenance
	}
	if !instance.Status.Valid() || instance.Status == models.LoanStatusOnLoan {
		return errcodes.FieldValidationError("status", "Copies can't be created on loan")
	}
	if instance.ID == "" {
		instance.ID = uuid.New().String()
	}

	now := time.Now()
	instance.CreatedAt = now
	instance.UpdatedAt = now

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Where("b.id = ?", instance.BookID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Book")
		}

		_, err = tx.NewInsert().Model(instance).Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errcodes.ConstraintViolation("A copy with this id already exists")
			}
			return errors.WithStack(err)
		}
		return nil
	})
}

func (svc *Service) RetrieveInstance(ctx context.Context, opts RetrieveInstanceOptions) (*models.BookInstance, error) {
	instance := &models.BookInstance{}

	err := svc.db.
		NewSelect().
		Model(instance).
		Relation("Book").
		Relation("Book.Author").
		Relation("Borrower").
		Where("bi.id = ?", opts.ID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book instance")
		}
		return nil, errors.WithStack(err)
	}

	return instance, nil
}

func (svc *Service) ListInstances(ctx context.Context, opts ListInstancesOptions) ([]*models.BookInstance, error) {
	i, _, err := svc.listInstancesWithTotal(ctx, opts)
	return i, errors.WithStack(err)
}

func (svc *Service) ListInstancesWithTotal(ctx context.Context, opts ListInstancesOptions) ([]*models.BookInstance, int, error) {
	opts.includeTotal = true
	return svc.listInstancesWithTotal(ctx, opts)
}

func (svc *Service) listInstancesWithTotal(ctx context.Context, opts ListInstancesOptions) ([]*models.BookInstance, int, error) {
	instances := []*models.BookInstance{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&instances).
		Relation("Book").
		OrderExpr("bi.due_back IS NOT NULL, bi.due_back ASC, bi.id ASC")

	if opts.BookID != nil {
		q = q.Where("bi.book_id = ?", *opts.BookID)
	}
	if opts.Status != nil {
		q = q.Where("bi.status = ?", *opts.Status)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return instances, total, nil
}

// UpdateInstance writes descriptive columns only. Status, borrower and due
// date belong to the loans service.
func (svc *Service) UpdateInstance(ctx context.Context, instance *models.BookInstance, opts UpdateInstanceOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}
	for _, column := range opts.Columns {
		if column != "imprint" {
			return errors.Errorf("column %q can't be updated directly", column)
		}
	}

	instance.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(instance).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Book instance")
	}

	return nil
}

// DeleteInstance removes a copy. Copies that are out on loan have to be
// returned first.
func (svc *Service) DeleteInstance(ctx context.Context, id string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		instance := &models.BookInstance{}
		err := tx.NewSelect().Model(instance).Where("bi.id = ?", id).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book instance")
			}
			return errors.WithStack(err)
		}
		if instance.Status == models.LoanStatusOnLoan {
			return errcodes.ConstraintViolation("Copy can't be deleted while it is on loan")
		}

		_, err = tx.NewDelete().
			Model((*models.BookInstance)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
