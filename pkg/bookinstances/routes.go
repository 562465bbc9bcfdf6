package bookinstances

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		instanceService: NewService(db),
	}

	write := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequirePermission(models.ResourceCatalog, models.OperationWrite),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, write...)
	g.PATCH("/:id", h.update, write...)
	g.DELETE("/:id", h.deleteInstance, write...)
}
