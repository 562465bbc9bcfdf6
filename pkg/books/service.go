package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/database"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/identifiers"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/search"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID   *int
	ISBN *string
}

type ListBooksOptions struct {
	Limit    *int
	Offset   *int
	AuthorID *int
	GenreID  *int
	Search   *string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns      []string
	UpdateGenres bool
	GenreIDs     []int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook inserts book and tags it with genreIDs. The ISBN is normalized
// to its 13 character form first; ISBN-10 input is converted.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book, genreIDs []int) error {
	isbn, ok := identifiers.CatalogISBN(book.ISBN)
	if !ok {
		return errcodes.FieldValidationError("isbn", "ISBN must be 13 characters")
	}
	book.ISBN = isbn

	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := checkAuthor(ctx, tx, book.AuthorID); err != nil {
			return err
		}
		if err := checkISBNAvailable(ctx, tx, book.ISBN, 0); err != nil {
			return err
		}

		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return translateWriteError(err)
		}

		return replaceGenres(ctx, tx, book.ID, genreIDs)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func checkAuthor(ctx context.Context, tx bun.Tx, authorID int) error {
	exists, err := tx.NewSelect().
		Model((*models.Author)(nil)).
		Where("a.id = ?", authorID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Author")
	}
	return nil
}

// checkISBNAvailable fails when a book other than exceptID already has isbn.
func checkISBNAvailable(ctx context.Context, tx bun.Tx, isbn string, exceptID int) error {
	exists, err := tx.NewSelect().
		Model((*models.Book)(nil)).
		Where("b.isbn = ?", isbn).
		Where("b.id != ?", exceptID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.ConstraintViolation("A book with this ISBN already exists")
	}
	return nil
}

func replaceGenres(ctx context.Context, tx bun.Tx, bookID int, genreIDs []int) error {
	_, err := tx.NewDelete().
		Model((*models.BookGenre)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	seen := make(map[int]bool, len(genreIDs))
	bookGenres := make([]*models.BookGenre, 0, len(genreIDs))
	for _, genreID := range genreIDs {
		if seen[genreID] {
			continue
		}
		seen[genreID] = true
		bookGenres = append(bookGenres, &models.BookGenre{BookID: bookID, GenreID: genreID})
	}
	if len(bookGenres) == 0 {
		return nil
	}

	count, err := tx.NewSelect().
		Model((*models.Genre)(nil)).
		Where("g.id IN (?)", bun.In(genreIDsOf(bookGenres))).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count != len(bookGenres) {
		return errcodes.NotFound("Genre")
	}

	_, err = tx.NewInsert().Model(&bookGenres).Exec(ctx)
	return errors.WithStack(err)
}

func genreIDsOf(bookGenres []*models.BookGenre) []int {
	ids := make([]int, len(bookGenres))
	for i, bg := range bookGenres {
		ids[i] = bg.GenreID
	}
	return ids
}

func translateWriteError(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return errcodes.ConstraintViolation("A book with this ISBN already exists")
	case database.IsForeignKeyViolation(err):
		return errcodes.ConstraintViolation("Book references a missing author")
	default:
		return errors.WithStack(err)
	}
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Author").
		Relation("Genres.Genre").
		Relation("Instances", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("bi.due_back IS NOT NULL, bi.due_back ASC, bi.id ASC")
		})

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.ISBN != nil {
		q = q.Where("b.isbn = ?", *opts.ISBN)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Author").
		Relation("Genres.Genre").
		Order("b.title ASC", "b.id ASC")

	if opts.AuthorID != nil {
		q = q.Where("b.author_id = ?", *opts.AuthorID)
	}
	if opts.GenreID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_genres WHERE genre_id = ?)", *opts.GenreID)
	}
	if opts.Search != nil && *opts.Search != "" {
		ftsQuery := search.BuildPrefixQuery(*opts.Search)
		if ftsQuery != "" {
			q = q.Where("b.id IN (SELECT book_id FROM books_fts WHERE books_fts MATCH ?)", ftsQuery)
		}
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

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateGenres {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, column := range opts.Columns {
			switch column {
			case "isbn":
				isbn, ok := identifiers.CatalogISBN(book.ISBN)
				if !ok {
					return errcodes.FieldValidationError("isbn", "ISBN must be 13 characters")
				}
				book.ISBN = isbn
				if err := checkISBNAvailable(ctx, tx, book.ISBN, book.ID); err != nil {
					return err
				}
			case "author_id":
				if err := checkAuthor(ctx, tx, book.AuthorID); err != nil {
					return err
				}
			}
		}

		if opts.UpdateGenres {
			if err := replaceGenres(ctx, tx, book.ID, opts.GenreIDs); err != nil {
				return err
			}
		}

		// Update updated_at.
		now := time.Now()
		book.UpdatedAt = now
		columns := append(opts.Columns, "updated_at")

		res, err := tx.
			NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return translateWriteError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errcodes.NotFound("Book")
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBook deletes a book and its genre tags. Books that still have copies
// can't be deleted.
func (svc *Service) DeleteBook(ctx context.Context, bookID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		instanceCount, err := tx.NewSelect().
			Model((*models.BookInstance)(nil)).
			Where("bi.book_id = ?", bookID).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if instanceCount > 0 {
			return errcodes.ConstraintViolation("Book can't be deleted while copies of it exist")
		}

		res, err := tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", bookID).
			Exec(ctx)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return errcodes.ConstraintViolation("Book can't be deleted while copies of it exist")
			}
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errcodes.NotFound("Book")
		}
		return nil
	})
}
