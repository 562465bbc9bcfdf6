package search

import (
	"context"
	"testing"

	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func indexFixtures(t *testing.T, db *bun.DB, svc *Service) (*models.Author, []*models.Book) {
	t.Helper()
	ctx := context.Background()

	leguin := testutils.CreateAuthor(t, db, "Ursula", "Le Guin")
	banks := testutils.CreateAuthor(t, db, "Iain", "Banks")
	books := []*models.Book{
		testutils.CreateBook(t, db, leguin, "A Wizard of Earthsea", "9780553383041"),
		testutils.CreateBook(t, db, leguin, "The Left Hand of Darkness", "9780441478125"),
		testutils.CreateBook(t, db, banks, "The Player of Games", "9780316005401"),
	}
	for _, book := range books {
		book.Author = leguin
		if book.AuthorID == banks.ID {
			book.Author = banks
		}
		require.NoError(t, svc.IndexBook(ctx, book))
	}
	return leguin, books
}

func TestSearchBooks_MatchesTitlesAndAuthors(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	_, books := indexFixtures(t, db, svc)

	results, total, err := svc.SearchBooks(ctx, "wiz", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, books[0].ID, results[0].ID)
	assert.Equal(t, "Le Guin, Ursula", results[0].Author)

	results, total, err = svc.SearchBooks(ctx, "wiz earth", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, books[0].ID, results[0].ID)

	results, total, err = svc.SearchBooks(ctx, "le guin", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, results, 2)
}

func TestSearchBooks_ISBNLeadsResults(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	_, books := indexFixtures(t, db, svc)

	results, total, err := svc.SearchBooks(ctx, "978-0-316-00540-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, books[2].ID, results[0].ID)
}

func TestSearchBooks_OperatorsAreLiteral(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	indexFixtures(t, db, svc)

	results, total, err := svc.SearchBooks(ctx, `wizard OR "games`, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, total)

	results, total, err = svc.SearchBooks(ctx, "   ", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, total)
}

func TestIndexAuthorBooks_FollowsRenames(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	leguin, _ := indexFixtures(t, db, svc)

	_, err := db.NewUpdate().
		Model(leguin).
		Set("last_name = ?", "LeGuin").
		WherePK().
		Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.IndexAuthorBooks(ctx, leguin.ID))

	results, _, err := svc.SearchBooks(ctx, "leguin", 10, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDeleteFromBookIndexAndRebuild(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	_, books := indexFixtures(t, db, svc)

	require.NoError(t, svc.DeleteFromBookIndex(ctx, books[0].ID))
	results, _, err := svc.SearchBooks(ctx, "wizard", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, svc.RebuildBookIndex(ctx))
	results, _, err = svc.SearchBooks(ctx, "wizard", 10, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestEnsureBookIndex(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	_, books := indexFixtures(t, db, svc)

	rebuilt, err := svc.EnsureBookIndex(ctx)
	require.NoError(t, err)
	assert.False(t, rebuilt)

	require.NoError(t, svc.DeleteFromBookIndex(ctx, books[1].ID))
	rebuilt, err = svc.EnsureBookIndex(ctx)
	require.NoError(t, err)
	assert.True(t, rebuilt)

	results, _, err := svc.SearchBooks(ctx, "darkness", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, books[1].ID, results[0].ID)
}
