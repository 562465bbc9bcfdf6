package roles

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers role management under /roles. Roles are part of
// user management so they share the users permissions.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) *Service {
	roleService := NewService(db)

	h := &handler{
		roleService: roleService,
	}

	read := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationRead)}
	write := []echo.MiddlewareFunc{authMiddleware.Authenticate, authMiddleware.RequirePermission(models.ResourceUsers, models.OperationWrite)}

	e.GET("/roles", h.list, read...)
	e.GET("/roles/:id", h.retrieve, read...)
	e.POST("/roles", h.create, write...)
	e.POST("/roles/:id", h.update, write...)
	e.DELETE("/roles/:id", h.delete, write...)

	return roleService
}
