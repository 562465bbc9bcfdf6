package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/catalog"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
)

type handler struct {
	userService    *Service
	catalogService *catalog.Service
}

func userID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("User")
	}
	return id, nil
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, CreateUserOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("user created", logger.Data{"user_id": user.ID, "role_id": user.RoleID})

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := userID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// loans lists the copies a user currently has on loan, soonest due first.
func (h *handler) loans(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := userID(c)
	if err != nil {
		return err
	}

	if _, err := h.userService.Retrieve(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	instances, err := h.catalogService.ListOnLoanForUser(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, instances))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	id, err := userID(c)
	if err != nil {
		return err
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateOptions{Columns: []string{}}

	if params.Username != nil && *params.Username != user.Username {
		user.Username = *params.Username
		opts.Columns = append(opts.Columns, "username")
	}
	if params.Email != nil {
		user.Email = params.Email
		opts.Columns = append(opts.Columns, "email")
	}
	if params.RoleID != nil && *params.RoleID != user.RoleID {
		user.RoleID = *params.RoleID
		opts.Columns = append(opts.Columns, "role_id")
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		if currentID, _ := auth.GetUserIDFromContext(c); currentID == id && !*params.IsActive {
			return errcodes.ValidationError("You cannot deactivate your own account")
		}
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	if err := h.userService.Update(ctx, user, opts); err != nil {
		return errors.WithStack(err)
	}

	if len(opts.Columns) > 0 {
		log.Info("user updated", logger.Data{"user_id": id, "columns": opts.Columns})
	}

	user, err = h.userService.Retrieve(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) resetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	id, err := userID(c)
	if err != nil {
		return err
	}

	params := ResetPasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	currentID, _ := auth.GetUserIDFromContext(c)
	if currentID == id {
		if params.CurrentPassword == nil || *params.CurrentPassword == "" {
			return errcodes.FieldValidationError("current_password", "Current password is required when resetting your own password")
		}

		valid, err := h.userService.VerifyPassword(ctx, id, *params.CurrentPassword)
		if err != nil {
			return errors.WithStack(err)
		}
		if !valid {
			return errcodes.FieldValidationError("current_password", "Current password is incorrect")
		}
	} else {
		user := auth.CurrentUser(c)
		if user == nil {
			return errcodes.Unauthorized("Authentication required")
		}
		if !user.HasPermission(models.ResourceUsers, models.OperationWrite) {
			return errcodes.Forbidden("You don't have permission to reset other users' passwords")
		}
	}

	if err := h.userService.ResetPassword(ctx, id, params.NewPassword); err != nil {
		return errors.WithStack(err)
	}

	log.Info("password reset", logger.Data{"user_id": id, "by_user_id": currentID})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	id, err := userID(c)
	if err != nil {
		return err
	}

	if currentID, _ := auth.GetUserIDFromContext(c); currentID == id {
		return errcodes.ValidationError("You cannot deactivate your own account")
	}

	if err := h.userService.Deactivate(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	log.Info("user deactivated", logger.Data{"user_id": id})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
