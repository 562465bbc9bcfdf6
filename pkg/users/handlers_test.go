package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/binder"
	"github.com/shishobooks/locallibrary/pkg/catalog"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersTestContext(t *testing.T, payload, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func setResetPasswordParams(c echo.Context, userID int) {
	c.SetPath("/users/:id/reset-password")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(userID))
}

func TestHandlerResetPassword_Self_RequiresCurrentPassword(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	h := &handler{userService: NewService(db)}
	user := testutils.CreateUser(t, db, "selfreset", models.RoleMember)

	c, _ := newUsersTestContext(t, `{"new_password":"newpassword123"}`, "/users/"+strconv.Itoa(user.ID)+"/reset-password")
	setResetPasswordParams(c, user.ID)
	c.Set("user_id", user.ID)
	c.Set("user", user)

	err := h.resetPassword(c)
	require.Error(t, err)

	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "validation_error", codeErr.Code)
	assert.Equal(t, "current_password", codeErr.Field)
	assert.Equal(t, "Current password is required when resetting your own password", codeErr.Message)
}

func TestHandlerResetPassword_Self_WithCurrentPassword(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	h := &handler{userService: NewService(db)}
	ctx := context.Background()
	user := testutils.CreateUser(t, db, "selfreset", models.RoleMember)

	payload := `{"current_password":"` + testutils.Password + `","new_password":"newpassword123"}`
	c, rr := newUsersTestContext(t, payload, "/users/"+strconv.Itoa(user.ID)+"/reset-password")
	setResetPasswordParams(c, user.ID)
	c.Set("user_id", user.ID)
	c.Set("user", user)

	require.NoError(t, h.resetPassword(c))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	valid, err := h.userService.VerifyPassword(ctx, user.ID, "newpassword123")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestHandlerResetPassword_OtherUser_RequiresUsersWrite(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	h := &handler{userService: NewService(db)}
	ctx := context.Background()

	target := testutils.CreateUser(t, db, "target", models.RoleMember)
	librarian := testutils.CreateUser(t, db, "librarian", models.RoleLibrarian)
	admin := testutils.CreateUser(t, db, "admin", models.RoleAdmin)

	c, _ := newUsersTestContext(t, `{"new_password":"newpassword123"}`, "/users/"+strconv.Itoa(target.ID)+"/reset-password")
	setResetPasswordParams(c, target.ID)
	c.Set("user_id", librarian.ID)
	c.Set("user", librarian)

	err := h.resetPassword(c)
	assert.True(t, errcodes.HasCode(err, "forbidden"))

	c, rr := newUsersTestContext(t, `{"new_password":"newpassword123"}`, "/users/"+strconv.Itoa(target.ID)+"/reset-password")
	setResetPasswordParams(c, target.ID)
	c.Set("user_id", admin.ID)
	c.Set("user", admin)

	require.NoError(t, h.resetPassword(c))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	valid, err := h.userService.VerifyPassword(ctx, target.ID, "newpassword123")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestHandlerDeactivate_RejectsSelf(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	h := &handler{userService: NewService(db)}
	admin := testutils.CreateUser(t, db, "admin", models.RoleAdmin)

	c, _ := newUsersTestContext(t, "", "/users/"+strconv.Itoa(admin.ID))
	c.SetPath("/users/:id")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(admin.ID))
	c.Set("user_id", admin.ID)

	err := h.deactivate(c)
	assert.True(t, errcodes.HasCode(err, "validation_error"))
}

func TestHandlerLoans(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	h := &handler{userService: NewService(db), catalogService: catalog.NewService(db)}
	member := testutils.CreateUser(t, db, "reader", models.RoleMember)
	author := testutils.CreateAuthor(t, db, "Ben", "Bova")
	book := testutils.CreateBook(t, db, author, "Death Wave", "9780765379504")
	instance := testutils.CreateInstance(t, db, book, testutils.OnLoanTo(member, testutils.Date(2026, 11, 2)))

	c, rr := newUsersTestContext(t, "", "/users/"+strconv.Itoa(member.ID)+"/loans")
	c.SetPath("/users/:id/loans")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(member.ID))

	require.NoError(t, h.loans(c))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), instance.ID)
	assert.Contains(t, rr.Body.String(), "Death Wave")

	c, _ = newUsersTestContext(t, "", "/users/4242/loans")
	c.SetPath("/users/:id/loans")
	c.SetParamNames("id")
	c.SetParamValues("4242")
	err := h.loans(c)
	assert.True(t, errcodes.HasCode(err, "not_found"), err)
}
