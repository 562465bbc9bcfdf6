package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db         *bun.DB
	now        func() time.Time
	loanPeriod int
}

// NewService builds a loans service reading "today" from now. A nil now
// uses the wall clock.
func NewService(db *bun.DB, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, now: now, loanPeriod: DefaultLoanDays}
}

// WithLoanPeriod sets how many days a new loan runs when no due date is
// given.
func (svc *Service) WithLoanPeriod(days int) *Service {
	if days > 0 {
		svc.loanPeriod = days
	}
	return svc
}

// Today is the current calendar date as the service sees it.
func (svc *Service) Today() time.Time {
	return models.DateOf(svc.now())
}

func (svc *Service) retrieveInstance(ctx context.Context, db bun.IDB, instanceID string) (*models.BookInstance, error) {
	instance := &models.BookInstance{}
	err := db.NewSelect().
		Model(instance).
		Relation("Book").
		Relation("Borrower").
		Where("bi.id = ?", instanceID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book instance")
		}
		return nil, errors.WithStack(err)
	}
	return instance, nil
}

// RetrieveForRenewal loads a copy for the renewal form along with the date
// the form should propose. It runs the same guard as Renew.
func (svc *Service) RetrieveForRenewal(ctx context.Context, caller Caller, instanceID string) (*models.BookInstance, time.Time, error) {
	if err := authorize(caller); err != nil {
		return nil, time.Time{}, err
	}

	instance, err := svc.retrieveInstance(ctx, svc.db, instanceID)
	if err != nil {
		return nil, time.Time{}, err
	}

	return instance, ProposedRenewalDate(svc.Today()), nil
}

// MarkReturned puts a copy back on the shelf. The status becomes Available
// and the borrower and due date are cleared whatever the copy's previous
// state was.
func (svc *Service) MarkReturned(ctx context.Context, caller Caller, instanceID string) (*models.BookInstance, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}

	var instance *models.BookInstance
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		instance, err = svc.retrieveInstance(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		previous := instance.Status
		instance.Status = models.LoanStatusAvailable
		instance.DueBack = nil
		instance.BorrowerID = nil
		instance.Borrower = nil
		instance.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(instance).
			Column("status", "due_back", "borrower_id", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		logger.FromContext(ctx).Info("copy marked returned", logger.Data{
			"instance_id":     instance.ID,
			"previous_status": string(previous),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return instance, nil
}

// Renew moves a copy's due date. Only due_back changes; a rejected date
// leaves the row as it was.
func (svc *Service) Renew(ctx context.Context, caller Caller, instanceID string, newDueDate time.Time) (*models.BookInstance, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}

	var instance *models.BookInstance
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		instance, err = svc.retrieveInstance(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		if err := ValidateRenewalDate(newDueDate, svc.Today()); err != nil {
			return err
		}

		dueBack := models.DateOf(newDueDate)
		instance.DueBack = &dueBack
		instance.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(instance).
			Column("due_back", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		logger.FromContext(ctx).Info("loan renewed", logger.Data{
			"instance_id": instance.ID,
			"due_back":    dueBack.Format(models.DateLayout),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return instance, nil
}

// LoanOut lends an Available or Reserved copy to borrowerID. A nil dueBack
// means the default loan period from today.
func (svc *Service) LoanOut(ctx context.Context, caller Caller, instanceID string, borrowerID int, dueBack *time.Time) (*models.BookInstance, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}

	var instance *models.BookInstance
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		instance, err = svc.retrieveInstance(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		if !CanTransition(instance.Status, models.LoanStatusOnLoan) {
			return errcodes.FieldValidationError(statusField, "A copy that is "+instance.Status.Label()+" can't be loaned out")
		}

		borrower := &models.User{}
		err = tx.NewSelect().
			Model(borrower).
			Where("u.id = ?", borrowerID).
			Where("u.is_active = ?", true).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Borrower")
			}
			return errors.WithStack(err)
		}

		today := svc.Today()
		due := today.AddDate(0, 0, svc.loanPeriod)
		if dueBack != nil {
			due = models.DateOf(*dueBack)
		}
		if err := validateDueDate(dueBackField, due, today); err != nil {
			return err
		}

		instance.Status = models.LoanStatusOnLoan
		instance.BorrowerID = &borrower.ID
		instance.Borrower = borrower
		instance.DueBack = &due
		instance.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(instance).
			Column("status", "due_back", "borrower_id", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		logger.FromContext(ctx).Info("copy loaned out", logger.Data{
			"instance_id": instance.ID,
			"borrower_id": borrower.ID,
			"due_back":    due.Format(models.DateLayout),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return instance, nil
}

// SetStatus moves a copy between Maintenance, Available and Reserved. Loans
// start with LoanOut and end with MarkReturned, so On loan is never a valid
// source or target here. Setting the current status again is a no-op.
func (svc *Service) SetStatus(ctx context.Context, caller Caller, instanceID string, status models.LoanStatus) (*models.BookInstance, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, errcodes.FieldValidationError(statusField, "Unknown status")
	}

	var instance *models.BookInstance
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		instance, err = svc.retrieveInstance(ctx, tx, instanceID)
		if err != nil {
			return err
		}

		switch {
		case instance.Status == status:
			return nil
		case status == models.LoanStatusOnLoan:
			return errcodes.FieldValidationError(statusField, "Use loan out to lend a copy")
		case instance.Status == models.LoanStatusOnLoan:
			return errcodes.FieldValidationError(statusField, "Copy is on loan and has to be returned first")
		case !CanTransition(instance.Status, status):
			return errcodes.FieldValidationError(statusField, "A copy that is "+instance.Status.Label()+" can't become "+status.Label())
		}

		previous := instance.Status
		instance.Status = status
		instance.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(instance).
			Column("status", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		logger.FromContext(ctx).Info("copy status changed", logger.Data{
			"instance_id": instance.ID,
			"from":        string(previous),
			"to":          string(status),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return instance, nil
}
