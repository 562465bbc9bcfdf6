// Package testutils builds migrated in-memory databases and catalog fixtures
// for package tests.
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shishobooks/locallibrary/pkg/config"
	"github.com/shishobooks/locallibrary/pkg/database"
	"github.com/shishobooks/locallibrary/pkg/migrations"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plaintext password of every user created by CreateUser.
const Password = "password123"

// NewDB opens a fresh in-memory database with every migration applied.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	cfg := config.NewForTest()
	cfg.DatabaseConnectRetryDelay = time.Millisecond
	db, err := database.New(cfg)
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// Date returns the calendar date y-m-d at midnight UTC.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateUser inserts an active user with the named role and returns it with
// the role's permissions loaded.
func CreateUser(t testing.TB, db bun.IDB, username, roleName string) *models.User {
	t.Helper()
	ctx := context.Background()

	role := &models.Role{}
	err := db.NewSelect().Model(role).Where("name = ?", roleName).Scan(ctx)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		IsActive:     true,
	}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	err = db.NewSelect().
		Model(user).
		Relation("Role").
		Relation("Role.Permissions").
		WherePK().
		Scan(ctx)
	require.NoError(t, err)

	return user
}

// CreateGenre inserts a genre.
func CreateGenre(t testing.TB, db bun.IDB, name string) *models.Genre {
	t.Helper()

	genre := &models.Genre{Name: name}
	_, err := db.NewInsert().Model(genre).Exec(context.Background())
	require.NoError(t, err)
	return genre
}

// CreateAuthor inserts an author without birth or death dates.
func CreateAuthor(t testing.TB, db bun.IDB, firstName, lastName string) *models.Author {
	t.Helper()

	author := &models.Author{FirstName: firstName, LastName: lastName}
	_, err := db.NewInsert().Model(author).Exec(context.Background())
	require.NoError(t, err)
	return author
}

// CreateBook inserts a book by author, tagged with the given genres.
func CreateBook(t testing.TB, db bun.IDB, author *models.Author, title, isbn string, genres ...*models.Genre) *models.Book {
	t.Helper()
	ctx := context.Background()

	book := &models.Book{
		Title:    title,
		AuthorID: author.ID,
		Summary:  "A summary of " + title,
		ISBN:     isbn,
	}
	_, err := db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	for _, genre := range genres {
		_, err = db.NewInsert().Model(&models.BookGenre{BookID: book.ID, GenreID: genre.ID}).Exec(ctx)
		require.NoError(t, err)
	}
	return book
}

// InstanceOption customises an instance built by CreateInstance.
type InstanceOption func(*models.BookInstance)

// WithStatus sets the loan status of the instance.
func WithStatus(status models.LoanStatus) InstanceOption {
	return func(bi *models.BookInstance) {
		bi.Status = status
	}
}

// OnLoanTo marks the instance as on loan to borrower until dueBack. A zero
// dueBack leaves the due date unset.
func OnLoanTo(borrower *models.User, dueBack time.Time) InstanceOption {
	return func(bi *models.BookInstance) {
		bi.Status = models.LoanStatusOnLoan
		bi.BorrowerID = &borrower.ID
		if !dueBack.IsZero() {
			bi.DueBack = &dueBack
		}
	}
}

// CreateInstance inserts an available copy of book.
func CreateInstance(t testing.TB, db bun.IDB, book *models.Book, opts ...InstanceOption) *models.BookInstance {
	t.Helper()

	instance := &models.BookInstance{
		ID:      uuid.New().String(),
		BookID:  book.ID,
		Imprint: "Test Imprint, 2026",
		Status:  models.LoanStatusAvailable,
	}
	for _, opt := range opts {
		opt(instance)
	}

	_, err := db.NewInsert().Model(instance).Exec(context.Background())
	require.NoError(t, err)
	return instance
}

// Clock returns a clock pinned to the given instant.
func Clock(now time.Time) func() time.Time {
	return func() time.Time {
		return now
	}
}
