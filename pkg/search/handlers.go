package search

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	searchService *Service
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()

	params := BooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.searchService.SearchBooks(ctx, params.Query, params.Limit, params.Offset)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []BookSearchResult `json:"books"`
		Total int                `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// reindex rebuilds the book index from the catalog tables, e.g. after rows
// were edited directly in the database.
func (h *handler) reindex(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	start := time.Now()
	if err := h.searchService.RebuildBookIndex(ctx); err != nil {
		return errors.WithStack(err)
	}

	log.Info("book index rebuilt", logger.Data{"duration_ms": time.Since(start).Milliseconds()})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
