package loans

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
)

type handler struct {
	loanService *Service
}

// CallerFrom returns the request's user as a Caller. Anonymous requests get
// a nil interface, not a typed nil.
func CallerFrom(c echo.Context) Caller {
	if user := auth.CurrentUser(c); user != nil {
		return user
	}
	return nil
}

func (h *handler) markReturned(c echo.Context) error {
	ctx := c.Request().Context()

	instance, err := h.loanService.MarkReturned(ctx, CallerFrom(c), c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, instance))
}

func (h *handler) renewForm(c echo.Context) error {
	ctx := c.Request().Context()

	instance, proposed, err := h.loanService.RetrieveForRenewal(ctx, CallerFrom(c), c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newRenewalProposal(instance, proposed, h.loanService.Today())))
}

func (h *handler) renew(c echo.Context) error {
	ctx := c.Request().Context()
	caller := CallerFrom(c)

	// Guard before binding so an anonymous caller always sees 401.
	if err := authorize(caller); err != nil {
		return err
	}

	params := RenewPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	date, err := models.ParseDate(params.RenewalDate)
	if err != nil {
		return errcodes.FieldValidationError(renewalDateField, `"renewal_date" should be in the format of YYYY-MM-DD`)
	}

	instance, err := h.loanService.Renew(ctx, caller, c.Param("id"), date)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, instance))
}

func (h *handler) loanOut(c echo.Context) error {
	ctx := c.Request().Context()
	caller := CallerFrom(c)

	if err := authorize(caller); err != nil {
		return err
	}

	params := LoanOutPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	dueBack, err := models.ParseOptionalDate(params.DueBack)
	if err != nil {
		return errcodes.FieldValidationError(dueBackField, `"due_back" should be in the format of YYYY-MM-DD`)
	}

	instance, err := h.loanService.LoanOut(ctx, caller, c.Param("id"), params.BorrowerID, dueBack)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, instance))
}

func (h *handler) setStatus(c echo.Context) error {
	ctx := c.Request().Context()
	caller := CallerFrom(c)

	if err := authorize(caller); err != nil {
		return err
	}

	params := SetStatusPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	instance, err := h.loanService.SetStatus(ctx, caller, c.Param("id"), models.LoanStatus(params.Status))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, instance))
}
