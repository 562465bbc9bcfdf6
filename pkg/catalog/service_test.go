package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type fixtures struct {
	earthsea *models.Book
	darkness *models.Book
	reader   *models.User
	other    *models.User
}

func seedCatalog(t *testing.T, db *bun.DB) fixtures {
	t.Helper()

	leguin := testutils.CreateAuthor(t, db, "Ursula", "Le Guin")
	testutils.CreateAuthor(t, db, "Iain", "Banks")
	fantasy := testutils.CreateGenre(t, db, "Fantasy")
	sf := testutils.CreateGenre(t, db, "Science Fiction")
	testutils.CreateGenre(t, db, "French Poetry")

	f := fixtures{
		earthsea: testutils.CreateBook(t, db, leguin, "A Wizard of Earthsea", "9780553383041", fantasy),
		darkness: testutils.CreateBook(t, db, leguin, "The Left Hand of Darkness", "9780441478125", sf),
		reader:   testutils.CreateUser(t, db, "reader", models.RoleMember),
		other:    testutils.CreateUser(t, db, "other", models.RoleMember),
	}
	return f
}

func TestCounts(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	f := seedCatalog(t, db)
	testutils.CreateInstance(t, db, f.earthsea)
	testutils.CreateInstance(t, db, f.earthsea, testutils.WithStatus(models.LoanStatusReserved))
	testutils.CreateInstance(t, db, f.darkness, testutils.WithStatus(models.LoanStatusMaintenance))
	testutils.CreateInstance(t, db, f.darkness, testutils.OnLoanTo(f.reader, testutils.Date(2026, 11, 1)))

	books, err := svc.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, books)

	instances, err := svc.CountInstances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, instances)

	available, err := svc.CountAvailableInstances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, available)

	authors, err := svc.CountAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, authors)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Books: 2, Instances: 4, AvailableInstances: 1, Authors: 2, Genres: 3}, summary)
}

func TestCounts_EmptyCatalog(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
}

func TestCountMatching(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	seedCatalog(t, db)

	count, err := svc.CountGenresMatching(ctx, "FI")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.CountBooksMatching(ctx, "the")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.CountBooksMatching(ctx, "%")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestListInstancesForBook(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	f := seedCatalog(t, db)

	late := testutils.CreateInstance(t, db, f.earthsea, testutils.OnLoanTo(f.reader, testutils.Date(2026, 12, 1)))
	early := testutils.CreateInstance(t, db, f.earthsea, testutils.OnLoanTo(f.other, testutils.Date(2026, 10, 1)))
	shelved := testutils.CreateInstance(t, db, f.earthsea)
	testutils.CreateInstance(t, db, f.darkness)

	instances, err := svc.ListInstancesForBook(ctx, f.earthsea.ID)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	assert.Equal(t, shelved.ID, instances[0].ID)
	assert.Equal(t, early.ID, instances[1].ID)
	assert.Equal(t, late.ID, instances[2].ID)

	instances, err = svc.ListInstancesForBook(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestListOnLoanForUser(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	f := seedCatalog(t, db)

	second := testutils.CreateInstance(t, db, f.earthsea, testutils.OnLoanTo(f.reader, testutils.Date(2026, 11, 20)))
	first := testutils.CreateInstance(t, db, f.darkness, testutils.OnLoanTo(f.reader, testutils.Date(2026, 10, 5)))
	undated := testutils.CreateInstance(t, db, f.darkness, testutils.OnLoanTo(f.reader, time.Time{}))
	testutils.CreateInstance(t, db, f.earthsea, testutils.OnLoanTo(f.other, testutils.Date(2026, 10, 1)))
	// Reserved for the reader but not lent, so it is not a loan.
	reserved := testutils.CreateInstance(t, db, f.earthsea, testutils.WithStatus(models.LoanStatusReserved))
	_, err := db.NewUpdate().Model(reserved).Set("borrower_id = ?", f.reader.ID).WherePK().Exec(ctx)
	require.NoError(t, err)

	instances, err := svc.ListOnLoanForUser(ctx, f.reader.ID)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	assert.Equal(t, undated.ID, instances[0].ID)
	assert.Equal(t, first.ID, instances[1].ID)
	assert.Equal(t, second.ID, instances[2].ID)
	require.NotNil(t, instances[1].Book)
	assert.Equal(t, "The Left Hand of Darkness", instances[1].Book.Title)

	nobody := testutils.CreateUser(t, db, "nobody", models.RoleMember)
	instances, err = svc.ListOnLoanForUser(ctx, nobody.ID)
	require.NoError(t, err)
	assert.NotNil(t, instances)
	assert.Empty(t, instances)
}

func TestListOnLoan(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	f := seedCatalog(t, db)

	testutils.CreateInstance(t, db, f.earthsea, testutils.OnLoanTo(f.reader, testutils.Date(2026, 11, 20)))
	testutils.CreateInstance(t, db, f.darkness, testutils.OnLoanTo(f.other, testutils.Date(2026, 10, 5)))
	testutils.CreateInstance(t, db, f.darkness)

	instances, err := svc.ListOnLoan(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)
	require.NotNil(t, instances[0].Borrower)
	assert.Equal(t, "other", instances[0].Borrower.Username)
	assert.Equal(t, "reader", instances[1].Borrower.Username)
}

func TestStorageErrorsPropagate(t *testing.T) {
	t.Parallel()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(mockDB, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close()
	})
	svc := NewService(db)
	ctx := context.Background()

	diskErr := errors.New("disk I/O error")
	mock.ExpectQuery(`SELECT count\(\*\) FROM "books"`).WillReturnError(diskErr)
	mock.ExpectQuery(`SELECT .* FROM "book_instances" AS "bi"`).WillReturnError(diskErr)

	_, err = svc.Summary(ctx)
	require.ErrorIs(t, err, diskErr)

	instances, err := svc.ListOnLoanForUser(ctx, 1)
	require.ErrorIs(t, err, diskErr)
	assert.Nil(t, instances)

	assert.NoError(t, mock.ExpectationsWereMet())
}
