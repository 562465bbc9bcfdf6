package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareContext(token string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/catalog/my-loans", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestMiddlewareAuthenticate(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	authService := NewService(db, "test-secret")
	middleware := NewMiddleware(authService)

	user := testutils.CreateUser(t, db, "member", models.RoleMember)
	token, err := authService.GenerateToken(user)
	require.NoError(t, err)

	t.Run("stores the user for valid tokens", func(tt *testing.T) {
		c := newMiddlewareContext(token)
		var seen *models.User
		err := middleware.Authenticate(func(c echo.Context) error {
			seen = CurrentUser(c)
			return nil
		})(c)
		require.NoError(tt, err)
		require.NotNil(tt, seen)
		assert.Equal(tt, user.ID, seen.ID)
		assert.True(tt, seen.HasPermission(models.ResourceCatalog, models.OperationRead))
	})

	t.Run("rejects missing cookies", func(tt *testing.T) {
		c := newMiddlewareContext("")
		err := middleware.Authenticate(func(_ echo.Context) error { return nil })(c)
		assert.True(tt, errcodes.HasCode(err, "authentication_required"))
	})

	t.Run("rejects tokens signed with another secret", func(tt *testing.T) {
		other, err := NewService(db, "other-secret").GenerateToken(user)
		require.NoError(tt, err)

		c := newMiddlewareContext(other)
		err = middleware.Authenticate(func(_ echo.Context) error { return nil })(c)
		assert.True(tt, errcodes.HasCode(err, "authentication_required"))
	})
}

func TestMiddlewareAuthenticate_RejectsDeactivatedUsers(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	authService := NewService(db, "test-secret")
	middleware := NewMiddleware(authService)

	user := testutils.CreateUser(t, db, "gone", models.RoleMember)
	token, err := authService.GenerateToken(user)
	require.NoError(t, err)

	_, err = db.NewUpdate().Model(user).Set("is_active = ?", false).WherePK().Exec(context.Background())
	require.NoError(t, err)

	nextCalled := false
	err = middleware.Authenticate(func(_ echo.Context) error {
		nextCalled = true
		return nil
	})(newMiddlewareContext(token))
	require.Error(t, err)
	assert.False(t, nextCalled)
}

func TestMiddlewareAuthenticateOptional_AllowsAnonymous(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	middleware := NewMiddleware(NewService(db, "test-secret"))

	nextCalled := false
	err := middleware.AuthenticateOptional(func(c echo.Context) error {
		nextCalled = true
		assert.Nil(t, CurrentUser(c))
		return nil
	})(newMiddlewareContext("garbage"))
	require.NoError(t, err)
	assert.True(t, nextCalled)
}

func TestMiddlewareRequirePermission(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	middleware := NewMiddleware(NewService(db, "test-secret"))
	member := testutils.CreateUser(t, db, "member", models.RoleMember)
	librarian := testutils.CreateUser(t, db, "librarian", models.RoleLibrarian)

	guard := middleware.RequirePermission(models.ResourceLoans, models.OperationMarkReturned)
	next := func(_ echo.Context) error { return nil }

	c := newMiddlewareContext("")
	assert.True(t, errcodes.HasCode(guard(next)(c), "authentication_required"))

	c = newMiddlewareContext("")
	setUser(c, member)
	assert.True(t, errcodes.HasCode(guard(next)(c), "forbidden"))

	c = newMiddlewareContext("")
	setUser(c, librarian)
	assert.NoError(t, guard(next)(c))
}

func TestMiddlewareAuthenticate_BearerHeader(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	authService := NewService(db, "test-secret")
	middleware := NewMiddleware(authService)

	user := testutils.CreateUser(t, db, "librarian", models.RoleLibrarian)
	token, err := authService.GenerateToken(user)
	require.NoError(t, err)

	c := newMiddlewareContext("garbage")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	var seen *models.User
	err = middleware.Authenticate(func(c echo.Context) error {
		seen = CurrentUser(c)
		return nil
	})(c)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestForbiddenMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "You don't have permission to manage loans.", forbiddenMessage(models.ResourceLoans, models.OperationMarkReturned))
	assert.Equal(t, "You don't have permission to change catalog.", forbiddenMessage(models.ResourceCatalog, models.OperationWrite))
	assert.Equal(t, "You don't have permission to view users.", forbiddenMessage(models.ResourceUsers, models.OperationRead))
}
