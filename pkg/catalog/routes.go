package catalog

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
)

func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		catalogService: NewService(db),
	}

	g.GET("/summary", h.summary)
	g.GET("/books/:id/instances", h.bookInstances)
	g.GET("/my-loans", h.myLoans, authMiddleware.Authenticate)
	g.GET("/loans", h.loans,
		authMiddleware.Authenticate,
		authMiddleware.RequirePermission(models.ResourceLoans, models.OperationMarkReturned),
	)
}
