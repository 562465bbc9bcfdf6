package authors

import (
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
	authorService *Service
	searchService *search.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author := &models.Author{
		FirstName: params.FirstName,
		LastName:  params.LastName,
	}
	var err error
	if author.DateOfBirth, err = models.ParseOptionalDate(params.DateOfBirth); err != nil {
		return errcodes.FieldValidationError("date_of_birth", `"date_of_birth" should be in the format of YYYY-MM-DD`)
	}
	if author.DateOfDeath, err = models.ParseOptionalDate(params.DateOfDeath); err != nil {
		return errcodes.FieldValidationError("date_of_death", `"date_of_death" should be in the format of YYYY-MM-DD`)
	}

	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("author created", logger.Data{"author_id": author.ID})

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID:           &id,
		IncludeBooks: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{
		"authors": authors,
		"total":   total,
	}))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateAuthorOptions{Columns: []string{}}
	renamed := false

	if params.FirstName != nil && *params.FirstName != author.FirstName {
		author.FirstName = *params.FirstName
		opts.Columns = append(opts.Columns, "first_name")
		renamed = true
	}
	if params.LastName != nil && *params.LastName != author.LastName {
		author.LastName = *params.LastName
		opts.Columns = append(opts.Columns, "last_name")
		renamed = true
	}
	if params.DateOfBirth != nil {
		if author.DateOfBirth, err = models.ParseOptionalDate(*params.DateOfBirth); err != nil {
			return errcodes.FieldValidationError("date_of_birth", `"date_of_birth" should be in the format of YYYY-MM-DD`)
		}
		opts.Columns = append(opts.Columns, "date_of_birth")
	}
	if params.DateOfDeath != nil {
		if author.DateOfDeath, err = models.ParseOptionalDate(*params.DateOfDeath); err != nil {
			return errcodes.FieldValidationError("date_of_death", `"date_of_death" should be in the format of YYYY-MM-DD`)
		}
		opts.Columns = append(opts.Columns, "date_of_death")
	}

	err = h.authorService.UpdateAuthor(ctx, author, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	if renamed {
		log := logger.FromContext(ctx)
		if err := h.searchService.IndexAuthorBooks(ctx, author.ID); err != nil {
			log.Warn("failed to reindex books after author rename", logger.Data{"author_id": author.ID, "error": err.Error()})
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) deleteAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	err = h.authorService.DeleteAuthor(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
