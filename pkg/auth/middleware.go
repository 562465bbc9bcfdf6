package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
)

// Middleware resolves the signed-in user from the session cookie or, for API
// clients, an "Authorization: Bearer" header carrying the same token.
type Middleware struct {
	authService *Service
}

func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

var (
	errNoToken      = errcodes.Unauthorized("Authentication required")
	errInvalidToken = errcodes.Unauthorized("Invalid or expired token")
	errInactiveUser = errcodes.Unauthorized("User not found or inactive")
)

func token(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if t, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// resolve returns the active user behind the request's token.
func (m *Middleware) resolve(c echo.Context) (*models.User, error) {
	raw := token(c)
	if raw == "" {
		return nil, errNoToken
	}

	claims, err := m.authService.ValidateToken(raw)
	if err != nil {
		return nil, errInvalidToken
	}

	user, err := m.authService.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return nil, errInactiveUser
	}
	return user, nil
}

// Authenticate rejects the request with a 401 unless it carries a valid token
// for an active user.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.resolve(c)
		if err != nil {
			return err
		}
		setUser(c, user)
		return next(c)
	}
}

// AuthenticateOptional sets the user when the token is good and otherwise
// carries on anonymously.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.resolve(c)
		switch {
		case err == nil:
			setUser(c, user)
		case !errors.Is(err, errNoToken):
			logger.FromContext(c.Request().Context()).Debug("ignoring session token", logger.Data{"error": err.Error()})
		}
		return next(c)
	}
}

// RequirePermission must run after Authenticate.
func (m *Middleware) RequirePermission(resource, operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return errNoToken
			}
			if !user.HasPermission(resource, operation) {
				return errcodes.Forbidden(forbiddenMessage(resource, operation))
			}
			return next(c)
		}
	}
}

func forbiddenMessage(resource, operation string) string {
	if resource == models.ResourceLoans && operation == models.OperationMarkReturned {
		return "You don't have permission to manage loans."
	}
	verb := "change"
	if operation == models.OperationRead {
		verb = "view"
	}
	return "You don't have permission to " + verb + " " + resource + "."
}

func setUser(c echo.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("username", user.Username)
	c.Set("user", user)
}

// CurrentUser returns the user stored by the authentication middleware, or nil
// for anonymous requests.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

func GetUserIDFromContext(c echo.Context) (int, bool) {
	userID, ok := c.Get("user_id").(int)
	return userID, ok
}
