package genres

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers genre routes on a pre-configured group.
// Reads are public; writes need catalog:write.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		genreService: NewService(db),
	}

	write := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequirePermission(models.ResourceCatalog, models.OperationWrite),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/books", h.books)
	g.POST("", h.create, write...)
	g.PATCH("/:id", h.update, write...)
	g.DELETE("/:id", h.deleteGenre, write...)
	g.POST("/:id/merge", h.merge, write...)
}
