package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
)

type handler struct {
	catalogService *Service
}

func (h *handler) summary(c echo.Context) error {
	summary, err := h.catalogService.Summary(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, summary))
}

func (h *handler) bookInstances(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	instances, err := h.catalogService.ListInstancesForBook(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, instances))
}

func (h *handler) myLoans(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	instances, err := h.catalogService.ListOnLoanForUser(c.Request().Context(), user.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, instances))
}

func (h *handler) loans(c echo.Context) error {
	instances, err := h.catalogService.ListOnLoan(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, instances))
}
