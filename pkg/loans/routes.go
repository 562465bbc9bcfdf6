package loans

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the loan routes. Authentication is
// optional at the middleware level; the service's guards decide between
// 401, 403 and 404 in that order.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware, loanPeriodDays int) {
	h := &handler{
		loanService: NewService(db, time.Now).WithLoanPeriod(loanPeriodDays),
	}

	optional := authMiddleware.AuthenticateOptional

	g.POST("/:id/return", h.markReturned, optional)
	g.GET("/:id/renew", h.renewForm, optional)
	g.POST("/:id/renew", h.renew, optional)
	g.POST("/:id/loan-out", h.loanOut, optional)
	g.POST("/:id/status", h.setStatus, optional)
}
