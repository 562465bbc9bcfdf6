package bookinstances

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/models"
)

type handler struct {
	instanceService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateInstancePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	instance := &models.BookInstance{
		BookID:  params.BookID,
		Imprint: params.Imprint,
		Status:  models.LoanStatus(params.Status),
	}
	if err := h.instanceService.CreateInstance(ctx, instance); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("book instance created", logger.Data{"instance_id": instance.ID, "book_id": instance.BookID})

	return errors.WithStack(c.JSON(http.StatusCreated, instance))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	instance, err := h.instanceService.RetrieveInstance(ctx, RetrieveInstanceOptions{ID: c.Param("id")})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, instance))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListInstancesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListInstancesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		BookID: params.BookID,
	}
	if params.Status != nil {
		status := models.LoanStatus(*params.Status)
		opts.Status = &status
	}

	instances, total, err := h.instanceService.ListInstancesWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{
		"instances": instances,
		"total":     total,
	}))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateInstancePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	instance, err := h.instanceService.RetrieveInstance(ctx, RetrieveInstanceOptions{ID: c.Param("id")})
	if err != nil {
		return errors.WithStack(err)
	}

	if params.Imprint != nil && *params.Imprint != instance.Imprint {
		instance.Imprint = *params.Imprint
		err = h.instanceService.UpdateInstance(ctx, instance, UpdateInstanceOptions{Columns: []string{"imprint"}})
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, instance))
}

func (h *handler) deleteInstance(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := h.instanceService.DeleteInstance(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("book instance deleted", logger.Data{"instance_id": id})

	return c.NoContent(http.StatusNoContent)
}
