package users

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/catalog"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers account management under /users.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	userService := NewService(db)

	h := &handler{
		userService:    userService,
		catalogService: catalog.NewService(db),
	}

	read := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationRead)}
	write := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite)}

	e.GET("/users", h.list, read...)
	e.GET("/users/:id", h.retrieve, read...)
	e.GET("/users/:id/loans", h.loans, read...)
	e.POST("/users", h.create, write...)
	e.POST("/users/:id", h.update, write...)
	e.DELETE("/users/:id", h.deactivate, write...)

	// Anyone signed in may reset their own password; resetting someone
	// else's is checked in the handler.
	e.POST("/users/:id/reset-password", h.resetPassword, authMiddleware.Authenticate)

	return userService
}
