// Package catalog answers the read-only questions the catalog pages ask:
// how many of each record exist, which copies a book has, and who has what
// on loan. Nothing here writes.
package catalog

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// Summary holds every count shown on the home page.
type Summary struct {
	Books              int `json:"books"`
	Instances          int `json:"instances"`
	AvailableInstances int `json:"available_instances"`
	Authors            int `json:"authors"`
	Genres             int `json:"genres"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CountBooks(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

func (svc *Service) CountInstances(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.BookInstance)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

// CountAvailableInstances counts copies whose status is Available. Reserved
// and maintenance copies are on the shelf but not counted.
func (svc *Service) CountAvailableInstances(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.BookInstance)(nil)).
		Where("bi.status = ?", models.LoanStatusAvailable).
		Count(ctx)
	return count, errors.WithStack(err)
}

func (svc *Service) CountAuthors(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Author)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

func (svc *Service) CountGenres(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Genre)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

// CountGenresMatching counts genres whose name contains word, ignoring case.
func (svc *Service) CountGenresMatching(ctx context.Context, word string) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Genre)(nil)).
		Where("LOWER(g.name) LIKE ? ESCAPE '\\'", containsPattern(word)).
		Count(ctx)
	return count, errors.WithStack(err)
}

// CountBooksMatching counts books whose title contains word, ignoring case.
func (svc *Service) CountBooksMatching(ctx context.Context, word string) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("LOWER(b.title) LIKE ? ESCAPE '\\'", containsPattern(word)).
		Count(ctx)
	return count, errors.WithStack(err)
}

func containsPattern(word string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(word))
	return "%" + escaped + "%"
}

// Summary runs every count. The counts are separate statements, so a write
// landing between them can make them disagree by one.
func (svc *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		summary Summary
		err     error
	)

	if summary.Books, err = svc.CountBooks(ctx); err != nil {
		return nil, err
	}
	if summary.Instances, err = svc.CountInstances(ctx); err != nil {
		return nil, err
	}
	if summary.AvailableInstances, err = svc.CountAvailableInstances(ctx); err != nil {
		return nil, err
	}
	if summary.Authors, err = svc.CountAuthors(ctx); err != nil {
		return nil, err
	}
	if summary.Genres, err = svc.CountGenres(ctx); err != nil {
		return nil, err
	}

	return &summary, nil
}

// dueBackOrder sorts copies without a due date ahead of everything else.
const dueBackOrder = "bi.due_back IS NOT NULL, bi.due_back ASC, bi.id ASC"

// ListInstancesForBook returns every copy of a book. An unknown book simply
// has no copies.
func (svc *Service) ListInstancesForBook(ctx context.Context, bookID int) ([]*models.BookInstance, error) {
	instances := []*models.BookInstance{}
	err := svc.db.NewSelect().
		Model(&instances).
		Where("bi.book_id = ?", bookID).
		OrderExpr(dueBackOrder).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return instances, nil
}

// ListOnLoanForUser returns the copies userID currently has on loan, soonest
// due first, with their books loaded.
func (svc *Service) ListOnLoanForUser(ctx context.Context, userID int) ([]*models.BookInstance, error) {
	instances := []*models.BookInstance{}
	err := svc.db.NewSelect().
		Model(&instances).
		Relation("Book").
		Where("bi.status = ?", models.LoanStatusOnLoan).
		Where("bi.borrower_id = ?", userID).
		OrderExpr(dueBackOrder).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return instances, nil
}

// ListOnLoan returns every copy out on loan with its book and borrower.
func (svc *Service) ListOnLoan(ctx context.Context) ([]*models.BookInstance, error) {
	instances := []*models.BookInstance{}
	err := svc.db.NewSelect().
		Model(&instances).
		Relation("Book").
		Relation("Borrower").
		Where("bi.status = ?", models.LoanStatusOnLoan).
		OrderExpr(dueBackOrder).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return instances, nil
}
