package search

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/identifiers"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// SearchBooks searches book titles and author names. A query that reads as
// an ISBN also matches that book exactly, ahead of the full-text results.
func (svc *Service) SearchBooks(ctx context.Context, query string, limit, offset int) ([]BookSearchResult, int, error) {
	ftsQuery := BuildPrefixQuery(query)
	if ftsQuery == "" {
		return []BookSearchResult{}, 0, nil
	}

	results := []BookSearchResult{}
	seenIDs := make(map[int]bool)

	// Exact identifier matches only lead the first page
	if offset == 0 {
		idResults, err := svc.searchBooksByISBN(ctx, query)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
		for _, r := range idResults {
			results = append(results, r)
			seenIDs[r.ID] = true
		}
	}

	remaining := limit - len(results)
	if remaining > 0 {
		ftsResults := []BookSearchResult{}
		err := svc.db.NewSelect().
			TableExpr("books_fts").
			ColumnExpr("book_id AS id, title, author").
			Where("books_fts MATCH ?", ftsQuery).
			Order("rank").
			Limit(remaining+len(seenIDs)). // Fetch extra to account for potential duplicates
			Offset(offset).
			Scan(ctx, &ftsResults)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}

		for _, r := range ftsResults {
			if !seenIDs[r.ID] && len(results) < limit {
				results = append(results, r)
				seenIDs[r.ID] = true
			}
		}
	}

	var total int
	err := svc.db.NewSelect().
		TableExpr("books_fts").
		ColumnExpr("COUNT(*)").
		Where("books_fts MATCH ?", ftsQuery).
		Scan(ctx, &total)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	if total < len(results) {
		total = len(results)
	}

	return results, total, nil
}

func (svc *Service) searchBooksByISBN(ctx context.Context, query string) ([]BookSearchResult, error) {
	isbn, ok := identifiers.CatalogISBN(query)
	if !ok {
		return nil, nil
	}

	results := []BookSearchResult{}
	err := svc.db.NewSelect().
		TableExpr("books AS b").
		Join("INNER JOIN authors AS a ON a.id = b.author_id").
		ColumnExpr("b.id AS id, b.title AS title").
		ColumnExpr("a.last_name || ', ' || a.first_name AS author").
		Where("b.isbn = ?", isbn).
		Scan(ctx, &results)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return results, nil
}

// IndexBook adds or updates a book in the FTS index. The book's author must
// be loaded.
func (svc *Service) IndexBook(ctx context.Context, book *models.Book) error {
	// First, delete any existing entry
	err := svc.DeleteFromBookIndex(ctx, book.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	authorName := ""
	if book.Author != nil {
		authorName = book.Author.DisplayName()
	}

	_, err = svc.db.ExecContext(ctx,
		`INSERT INTO books_fts (book_id, title, author) VALUES (?, ?, ?)`,
		book.ID,
		book.Title,
		authorName,
	)
	return errors.WithStack(err)
}

// IndexAuthorBooks reindexes every book by the author, after a rename.
func (svc *Service) IndexAuthorBooks(ctx context.Context, authorID int) error {
	books := []*models.Book{}
	err := svc.db.NewSelect().
		Model(&books).
		Relation("Author").
		Where("b.author_id = ?", authorID).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, book := range books {
		if err := svc.IndexBook(ctx, book); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFromBookIndex removes a book from the FTS index.
func (svc *Service) DeleteFromBookIndex(ctx context.Context, bookID int) error {
	_, err := svc.db.NewDelete().
		TableExpr("books_fts").
		Where("book_id = ?", bookID).
		Exec(ctx)
	return errors.WithStack(err)
}

// RebuildBookIndex repopulates books_fts from the books and authors tables.
func (svc *Service) RebuildBookIndex(ctx context.Context) error {
	return svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM books_fts")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books_fts (book_id, title, author)
			SELECT b.id, b.title, a.last_name || ', ' || a.first_name
			FROM books b
			INNER JOIN authors a ON a.id = b.author_id
		`)
		return errors.WithStack(err)
	})
}

// EnsureBookIndex rebuilds the index when its row count disagrees with the
// books table, which happens after restoring a database copied without the
// FTS shadow tables or after rows were edited by hand. It reports whether a
// rebuild ran.
func (svc *Service) EnsureBookIndex(ctx context.Context) (bool, error) {
	var books, indexed int
	err := svc.db.NewSelect().TableExpr("books").ColumnExpr("COUNT(*)").Scan(ctx, &books)
	if err != nil {
		return false, errors.WithStack(err)
	}
	err = svc.db.NewSelect().TableExpr("books_fts").ColumnExpr("COUNT(*)").Scan(ctx, &indexed)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if books == indexed {
		return false, nil
	}
	return true, svc.RebuildBookIndex(ctx)
}
