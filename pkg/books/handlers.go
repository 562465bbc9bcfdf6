package books

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/search"
)

type handler struct {
	bookService   *Service
	searchService *search.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:    params.Title,
		AuthorID: params.AuthorID,
		Summary:  params.Summary,
		ISBN:     params.ISBN,
	}
	if err := h.bookService.CreateBook(ctx, book, params.GenreIDs); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return errors.WithStack(err)
	}
	h.reindex(ctx, book)

	logger.FromContext(ctx).Info("book created", logger.Data{"book_id": book.ID, "isbn": book.ISBN})

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		AuthorID: params.AuthorID,
		GenreID:  params.GenreID,
		Search:   params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Summary != nil && *params.Summary != book.Summary {
		book.Summary = *params.Summary
		opts.Columns = append(opts.Columns, "summary")
	}
	if params.ISBN != nil && *params.ISBN != book.ISBN {
		book.ISBN = *params.ISBN
		opts.Columns = append(opts.Columns, "isbn")
	}
	if params.AuthorID != nil && *params.AuthorID != book.AuthorID {
		book.AuthorID = *params.AuthorID
		opts.Columns = append(opts.Columns, "author_id")
	}
	if params.GenreIDs != nil {
		opts.UpdateGenres = true
		opts.GenreIDs = *params.GenreIDs
	}

	err = h.bookService.UpdateBook(ctx, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload so the author and genres reflect the update.
	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if len(opts.Columns) > 0 {
		h.reindex(ctx, book)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	err = h.bookService.DeleteBook(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.searchService.DeleteFromBookIndex(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("failed to remove book from search index", logger.Data{"book_id": id, "error": err.Error()})
	}

	logger.FromContext(ctx).Info("book deleted", logger.Data{"book_id": id})

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) reindex(ctx context.Context, book *models.Book) {
	if err := h.searchService.IndexBook(ctx, book); err != nil {
		logger.FromContext(ctx).Warn("failed to update search index", logger.Data{"book_id": book.ID, "error": err.Error()})
	}
}
