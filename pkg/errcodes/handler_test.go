package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_CustomError(t *testing.T) {
	t.Parallel()

	code, payload := Payload(errors.WithStack(FieldValidationError("renewal_date", "Invalid date - renewal in past")))
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	body := payload["error"].(map[string]interface{})
	assert.Equal(t, "validation_error", body["code"])
	assert.Equal(t, "Invalid date - renewal in past", body["message"])
	assert.Equal(t, "renewal_date", body["field"])
}

func TestPayload_ConstraintViolation(t *testing.T) {
	t.Parallel()

	code, payload := Payload(ConstraintViolation("A book with this ISBN already exists."))
	assert.Equal(t, http.StatusConflict, code)

	body := payload["error"].(map[string]interface{})
	assert.Equal(t, "constraint_violation", body["code"])
	assert.NotContains(t, body, "field")
}

func TestPayload_UnknownErrorIsInternal(t *testing.T) {
	t.Parallel()

	code, payload := Payload(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)

	body := payload["error"].(map[string]interface{})
	assert.Equal(t, "internal_server_error", body["code"])
	assert.Equal(t, "Internal Server Error", body["message"])
}

func TestPayload_EchoError(t *testing.T) {
	t.Parallel()

	code, payload := Payload(echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests"))
	assert.Equal(t, http.StatusTooManyRequests, code)

	body := payload["error"].(map[string]interface{})
	assert.Equal(t, "too_many_requests", body["code"])
}

func TestHandle_WritesJSON(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/books/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHandler().Handle(NotFound("Book"), c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
	assert.Contains(t, rec.Body.String(), `"message":"Book not found."`)
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := errors.Wrap(Unauthorized("Authentication required"), "renew")
	require.Error(t, err)
	assert.True(t, HasCode(err, "authentication_required"))
	assert.False(t, HasCode(err, "forbidden"))
	assert.False(t, HasCode(errors.New("plain"), "forbidden"))
}

func TestHandle_HeadHasNoBody(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodHead, "/books/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHandler().Handle(NotFound("Book"), c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
