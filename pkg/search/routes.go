package search

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers catalog search. Searching is public;
// rebuilding the index is a catalog write.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		searchService: NewService(db),
	}

	g.GET("/books", h.books)
	g.POST("/reindex", h.reindex,
		authMiddleware.Authenticate,
		authMiddleware.RequirePermission(models.ResourceCatalog, models.OperationWrite),
	)
}
