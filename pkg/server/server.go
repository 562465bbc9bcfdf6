package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/authors"
	"github.com/shishobooks/locallibrary/pkg/binder"
	"github.com/shishobooks/locallibrary/pkg/bookinstances"
	"github.com/shishobooks/locallibrary/pkg/books"
	"github.com/shishobooks/locallibrary/pkg/catalog"
	"github.com/shishobooks/locallibrary/pkg/config"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/genres"
	"github.com/shishobooks/locallibrary/pkg/loans"
	"github.com/shishobooks/locallibrary/pkg/pages"
	"github.com/shishobooks/locallibrary/pkg/ratelimit"
	"github.com/shishobooks/locallibrary/pkg/roles"
	"github.com/shishobooks/locallibrary/pkg/search"
	"github.com/shishobooks/locallibrary/pkg/users"
	"github.com/shishobooks/locallibrary/pkg/visits"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := newEcho(cfg, db)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())
	e.Use(ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)

	health.RegisterRoutes(e)

	authMiddleware := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	users.RegisterRoutes(e, db, authMiddleware)
	roles.RegisterRoutes(e, db, authMiddleware)

	registerCatalogRoutes(e, db, cfg, authMiddleware)

	pages.RegisterRoutes(e, db, authMiddleware, pages.RoutesOptions{
		VisitCounter:   visits.NewStore(db),
		LoanPeriodDays: cfg.LoanPeriodDays,
	})

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

// registerCatalogRoutes registers the JSON API. Reads are public; each
// package guards its own writes.
func registerCatalogRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, authMiddleware *auth.Middleware) {
	genres.RegisterRoutesWithGroup(e.Group("/genres"), db, authMiddleware)
	authors.RegisterRoutesWithGroup(e.Group("/authors"), db, authMiddleware)
	books.RegisterRoutesWithGroup(e.Group("/books"), db, authMiddleware)
	bookinstances.RegisterRoutesWithGroup(e.Group("/instances"), db, authMiddleware)
	search.RegisterRoutesWithGroup(e.Group("/search"), db, authMiddleware)
	catalog.RegisterRoutesWithGroup(e.Group("/catalog"), db, authMiddleware)
	loans.RegisterRoutesWithGroup(e.Group("/loans"), db, authMiddleware, cfg.LoanPeriodDays)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
