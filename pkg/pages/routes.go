// Package pages serves the server-rendered HTML catalog: the home page,
// book and author browsing, borrowed lists and the renewal form.
package pages

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/authors"
	"github.com/shishobooks/locallibrary/pkg/books"
	"github.com/shishobooks/locallibrary/pkg/catalog"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/loans"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/visits"
	"github.com/uptrace/bun"
)

type RoutesOptions struct {
	VisitCounter   visits.Counter
	LoanPeriodDays int
	Now            func() time.Time
}

// RegisterRoutes registers the HTML pages. Every page knows the current user
// when there is one; pages that need a login send anonymous visitors to the
// login form.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, opts RoutesOptions) {
	counter := opts.VisitCounter
	if counter == nil {
		counter = visits.NewStore(db)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	h := &handler{
		authService:    authMiddleware.Service(),
		authorService:  authors.NewService(db),
		bookService:    books.NewService(db),
		catalogService: catalog.NewService(db),
		loanService:    loans.NewService(db, now).WithLoanPeriod(opts.LoanPeriodDays),
		visitCounter:   counter,
	}

	// Middleware is attached per route; a root group would claim every
	// unmatched path.
	mw := []echo.MiddlewareFunc{renderErrors, authMiddleware.AuthenticateOptional}
	manager := append(mw[:len(mw):len(mw)], requireLoanManager)

	e.GET("/", h.index, mw...)
	e.GET("/catalog/books", h.bookList, mw...)
	e.GET("/catalog/books/:id", h.bookDetail, mw...)
	e.GET("/catalog/authors", h.authorList, mw...)
	e.GET("/catalog/authors/:id", h.authorDetail, mw...)
	e.GET("/catalog/mybooks", h.myBooks, mw...)
	e.GET("/catalog/borrowed", h.borrowed, manager...)
	e.GET("/catalog/instances/:id/renew", h.renewForm, mw...)
	e.POST("/catalog/instances/:id/renew", h.renew, mw...)
	e.POST("/catalog/instances/:id/return", h.markReturned, mw...)
	e.GET("/catalog/login", h.loginForm, mw...)
	e.POST("/catalog/login", h.login, mw...)
	e.POST("/catalog/logout", h.logout, mw...)
}

func requireLoanManager(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return errcodes.Unauthorized("Authentication required")
		}
		if !user.HasPermission(models.ResourceLoans, models.OperationMarkReturned) {
			return errcodes.Forbidden("You don't have permission to see every loan.")
		}
		return next(c)
	}
}

// renderErrors turns handler errors into HTML pages. Anonymous visitors that
// hit a page needing a login are redirected to the login form instead.
func renderErrors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil || c.Response().Committed {
			return err
		}

		status, payload := errcodes.Payload(err)
		if status == http.StatusUnauthorized {
			target := c.Request().URL.RequestURI()
			if c.Request().Method != http.MethodGet {
				target = "/"
			}
			return c.Redirect(http.StatusSeeOther, "/catalog/login?next="+url.QueryEscape(target))
		}
		if status == http.StatusInternalServerError {
			logger.FromEchoContext(c).Err(err).Error("page error")
		}

		message := http.StatusText(status)
		if body, ok := payload["error"].(map[string]interface{}); ok {
			if m, ok := body["message"].(string); ok && m != "" {
				message = m
			}
		}
		return c.HTML(status, RenderPage(http.StatusText(status), auth.CurrentUser(c), errorContent(status, message)))
	}
}
