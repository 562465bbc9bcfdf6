package genres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/database"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveGenreOptions struct {
	ID   *int
	Name *string
}

type ListGenresOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateGenreOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateGenre(ctx context.Context, genre *models.Genre) error {
	genre.Name = strings.TrimSpace(genre.Name)
	if err := svc.checkNameAvailable(ctx, genre.Name, 0); err != nil {
		return err
	}

	now := time.Now()
	if genre.CreatedAt.IsZero() {
		genre.CreatedAt = now
	}
	genre.UpdatedAt = genre.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(genre).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.ConstraintViolation("A genre with this name already exists")
	}
	return errors.WithStack(err)
}

// checkNameAvailable fails when another genre already uses name, compared
// case-insensitively. exceptID excludes the genre being renamed.
func (svc *Service) checkNameAvailable(ctx context.Context, name string, exceptID int) error {
	exists, err := svc.db.NewSelect().
		Model((*models.Genre)(nil)).
		Where("g.name = ? COLLATE NOCASE", name).
		Where("g.id != ?", exceptID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.ConstraintViolation("A genre with this name already exists")
	}
	return nil
}

func (svc *Service) RetrieveGenre(ctx context.Context, opts RetrieveGenreOptions) (*models.Genre, error) {
	genre := &models.Genre{}

	q := svc.db.
		NewSelect().
		Model(genre).
		ColumnExpr("g.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_genres bg WHERE bg.genre_id = g.id) AS book_count")

	if opts.ID != nil {
		q = q.Where("g.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("g.name = ? COLLATE NOCASE", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}

	return genre, nil
}

// FindOrCreateGenre finds an existing genre or creates a new one (case-insensitive match).
func (svc *Service) FindOrCreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	// Normalize the name by trimming whitespace
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.FieldValidationError("name", "Genre name cannot be empty")
	}

	genre, err := svc.RetrieveGenre(ctx, RetrieveGenreOptions{
		Name: &name,
	})
	if err == nil {
		return genre, nil
	}
	if !errors.Is(err, errcodes.NotFound("Genre")) {
		return nil, err
	}

	genre = &models.Genre{
		Name: name,
	}
	err = svc.CreateGenre(ctx, genre)
	if err != nil {
		return nil, err
	}
	return genre, nil
}

func (svc *Service) ListGenres(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, error) {
	g, _, err := svc.listGenresWithTotal(ctx, opts)
	return g, errors.WithStack(err)
}

func (svc *Service) ListGenresWithTotal(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, int, error) {
	opts.includeTotal = true
	return svc.listGenresWithTotal(ctx, opts)
}

func (svc *Service) listGenresWithTotal(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, int, error) {
	genres := []*models.Genre{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&genres).
		ColumnExpr("g.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_genres bg WHERE bg.genre_id = g.id) AS book_count").
		Order("g.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("g.name LIKE ?", "%"+*opts.Search+"%")
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

	return genres, total, nil
}

func (svc *Service) UpdateGenre(ctx context.Context, genre *models.Genre, opts UpdateGenreOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, column := range opts.Columns {
		if column == "name" {
			genre.Name = strings.TrimSpace(genre.Name)
			if err := svc.checkNameAvailable(ctx, genre.Name, genre.ID); err != nil {
				return err
			}
		}
	}

	now := time.Now()
	genre.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(genre).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errcodes.ConstraintViolation("A genre with this name already exists")
		}
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Genre")
	}
	return nil
}

// DeleteGenre deletes a genre and all book associations.
func (svc *Service) DeleteGenre(ctx context.Context, genreID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Delete book_genres associations (cascade should handle this, but be explicit)
		_, err := tx.NewDelete().
			Model((*models.BookGenre)(nil)).
			Where("genre_id = ?", genreID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Genre)(nil)).
			Where("id = ?", genreID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errcodes.NotFound("Genre")
		}
		return nil
	})
}

// GetBooks returns all books with this genre.
func (svc *Service) GetBooks(ctx context.Context, genreID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.NewSelect().
		Model(&books).
		Relation("Author").
		Join("INNER JOIN book_genres bg ON bg.book_id = b.id").
		Where("bg.genre_id = ?", genreID).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

// MergeGenres merges sourceGenre into targetGenre (moves all associations, deletes source).
func (svc *Service) MergeGenres(ctx context.Context, targetID, sourceID int) error {
	if targetID == sourceID {
		return errcodes.FieldValidationError("source_id", "A genre can't be merged into itself")
	}
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Move the books from source that aren't already in target
		// to avoid unique constraint violations
		_, err := tx.NewRaw(`
			UPDATE book_genres
			SET genre_id = ?
			WHERE genre_id = ?
			AND book_id NOT IN (SELECT book_id FROM book_genres WHERE genre_id = ?)
		`, targetID, sourceID, targetID).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		// Delete remaining source associations (duplicates)
		_, err = tx.NewDelete().
			Model((*models.BookGenre)(nil)).
			Where("genre_id = ?", sourceID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Genre)(nil)).
			Where("id = ?", sourceID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errcodes.NotFound("Genre")
		}
		return nil
	})
}
