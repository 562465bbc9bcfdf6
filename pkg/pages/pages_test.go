package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/binder"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/shishobooks/locallibrary/pkg/visits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type site struct {
	t         *testing.T
	e         *echo.Echo
	db        *bun.DB
	tokens    map[string]string
	book      *models.Book
	member    *models.User
	librarian *models.User
}

func newSite(t *testing.T) *site {
	t.Helper()

	db := testutils.NewDB(t)
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	authMiddleware := auth.RegisterRoutes(e, db, "test-jwt-secret")
	RegisterRoutes(e, db, authMiddleware, RoutesOptions{
		VisitCounter:   visits.NewMemoryCounter(),
		LoanPeriodDays: 21,
		Now:            testutils.Clock(now),
	})

	author := testutils.CreateAuthor(t, db, "Ursula", "Le Guin")
	genre := testutils.CreateGenre(t, db, "Fantasy")
	s := &site{
		t:         t,
		e:         e,
		db:        db,
		tokens:    map[string]string{},
		book:      testutils.CreateBook(t, db, author, "A Wizard of Earthsea <1968>", "9780553383041", genre),
		member:    testutils.CreateUser(t, db, "member", models.RoleMember),
		librarian: testutils.CreateUser(t, db, "librarian", models.RoleLibrarian),
	}
	for _, user := range []*models.User{s.member, s.librarian} {
		token, err := authMiddleware.Service().GenerateToken(user)
		require.NoError(t, err)
		s.tokens[user.Username] = token
	}
	return s
}

func (s *site) request(method, path, username string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	if token, ok := s.tokens[username]; ok {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.e.ServeHTTP(rr, req)
	return rr
}

func (s *site) dueBack(id string) *time.Time {
	instance := &models.BookInstance{}
	require.NoError(s.t, s.db.NewSelect().Model(instance).Where("bi.id = ?", id).Scan(context.Background()))
	return instance.DueBack
}

func TestIndex_CountsAndVisits(t *testing.T) {
	t.Parallel()
	s := newSite(t)
	testutils.CreateInstance(t, s.db, s.book)
	testutils.CreateInstance(t, s.db, s.book, testutils.WithStatus(models.LoanStatusMaintenance))

	rr := s.request(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<strong>Books:</strong> 1")
	assert.Contains(t, body, "<strong>Copies:</strong> 2")
	assert.Contains(t, body, "<strong>Copies available:</strong> 1")
	assert.Contains(t, body, "<strong>Authors:</strong> 1")
	assert.Contains(t, body, "You have visited this page 1 time.")

	var visitor *http.Cookie
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == VisitorCookieName {
			visitor = cookie
		}
	}
	require.NotNil(t, visitor)

	rr = s.request(http.MethodGet, "/", "", nil, visitor)
	assert.Contains(t, rr.Body.String(), "You have visited this page 2 times.")

	// A new visitor starts over.
	rr = s.request(http.MethodGet, "/", "", nil)
	assert.Contains(t, rr.Body.String(), "You have visited this page 1 time.")
}

func TestBookPages(t *testing.T) {
	t.Parallel()
	s := newSite(t)
	testutils.CreateInstance(t, s.db, s.book, testutils.OnLoanTo(s.member, testutils.Date(2026, 10, 18)))

	rr := s.request(http.MethodGet, "/catalog/books", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "A Wizard of Earthsea &lt;1968&gt;")
	assert.Contains(t, rr.Body.String(), "Le Guin, Ursula")

	rr = s.request(http.MethodGet, "/catalog/books/"+itoa(s.book.ID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "On loan")
	assert.Contains(t, body, `<span class="overdue">2026-10-18</span>`)
	assert.NotContains(t, body, "Mark returned")

	rr = s.request(http.MethodGet, "/catalog/books/"+itoa(s.book.ID), "librarian", nil)
	assert.Contains(t, rr.Body.String(), "Mark returned")

	rr = s.request(http.MethodGet, "/catalog/books/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Book not found.")
	assert.Contains(t, rr.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
}

func TestAuthorPages(t *testing.T) {
	t.Parallel()
	s := newSite(t)

	rr := s.request(http.MethodGet, "/catalog/authors", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Le Guin, Ursula")

	rr = s.request(http.MethodGet, "/catalog/authors/"+itoa(s.book.AuthorID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "A Wizard of Earthsea &lt;1968&gt;")
}

func TestMyBooks(t *testing.T) {
	t.Parallel()
	s := newSite(t)
	testutils.CreateInstance(t, s.db, s.book, testutils.OnLoanTo(s.member, testutils.Date(2026, 11, 2)))
	testutils.CreateInstance(t, s.db, s.book, testutils.OnLoanTo(s.librarian, testutils.Date(2026, 11, 3)))

	rr := s.request(http.MethodGet, "/catalog/mybooks", "", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/catalog/login?next=%2Fcatalog%2Fmybooks", rr.Header().Get(echo.HeaderLocation))

	rr = s.request(http.MethodGet, "/catalog/mybooks", "member", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2026-11-02")
	assert.NotContains(t, rr.Body.String(), "2026-11-03")
}

func TestBorrowed(t *testing.T) {
	t.Parallel()
	s := newSite(t)
	testutils.CreateInstance(t, s.db, s.book, testutils.OnLoanTo(s.member, testutils.Date(2026, 11, 2)))

	rr := s.request(http.MethodGet, "/catalog/borrowed", "member", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.request(http.MethodGet, "/catalog/borrowed", "librarian", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "member")
	assert.Contains(t, rr.Body.String(), "2026-11-02")
}

func TestRenew(t *testing.T) {
	t.Parallel()
	s := newSite(t)
	instance := testutils.CreateInstance(t, s.db, s.book, testutils.OnLoanTo(s.member, testutils.Date(2026, 10, 25)))
	path := "/catalog/instances/" + instance.ID + "/renew"

	t.Run("form proposes three weeks out", func(t *testing.T) {
		rr := s.request(http.MethodGet, path, "librarian", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `value="2026-11-09"`)
	})

	t.Run("members are forbidden", func(t *testing.T) {
		rr := s.request(http.MethodGet, path, "member", nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("rejected date re-renders the form", func(t *testing.T) {
		rr := s.request(http.MethodPost, path, "librarian", url.Values{"renewal_date": {"2026-10-18"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid date - renewal in past")
		assert.Contains(t, rr.Body.String(), `value="2026-10-18"`)
		assert.Equal(t, testutils.Date(2026, 10, 25), s.dueBack(instance.ID).UTC())

		rr = s.request(http.MethodPost, path, "librarian", url.Values{"renewal_date": {"2026-12-25"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid date - renewal more than 4 weeks ahead")

		rr = s.request(http.MethodPost, path, "librarian", url.Values{"renewal_date": {"soon"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), `value="soon"`)
	})

	t.Run("valid date redirects", func(t *testing.T) {
		rr := s.request(http.MethodPost, path, "librarian", url.Values{"renewal_date": {"2026-11-08"}})
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/catalog/borrowed", rr.Header().Get(echo.HeaderLocation))
		assert.Equal(t, testutils.Date(2026, 11, 8), s.dueBack(instance.ID).UTC())
	})
}

func TestMarkReturned(t *testing.T) {
	t.Parallel()
	s := newSite(t)
	instance := testutils.CreateInstance(t, s.db, s.book, testutils.OnLoanTo(s.member, testutils.Date(2026, 10, 25)))
	path := "/catalog/instances/" + instance.ID + "/return"

	rr := s.request(http.MethodPost, path, "", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get(echo.HeaderLocation), "/catalog/login"))

	rr = s.request(http.MethodPost, path, "librarian", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Nil(t, s.dueBack(instance.ID))
}

func TestLogin(t *testing.T) {
	t.Parallel()
	s := newSite(t)

	rr := s.request(http.MethodGet, "/catalog/login?next=/catalog/mybooks", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="next" value="/catalog/mybooks"`)

	rr = s.request(http.MethodPost, "/catalog/login", "", url.Values{"username": {"member"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "didn&#39;t match")

	rr = s.request(http.MethodPost, "/catalog/login", "", url.Values{
		"username": {"member"},
		"password": {testutils.Password},
		"next":     {"/catalog/mybooks"},
	})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/catalog/mybooks", rr.Header().Get(echo.HeaderLocation))
	assert.Contains(t, rr.Header().Get(echo.HeaderSetCookie), auth.CookieName+"=")

	rr = s.request(http.MethodPost, "/catalog/logout", "member", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, rr.Header().Get(echo.HeaderSetCookie), "Max-Age=0")
}

func TestSafeNext(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/catalog/mybooks", safeNext("/catalog/mybooks"))
	assert.Equal(t, "/", safeNext(""))
	assert.Equal(t, "/", safeNext("https://example.com"))
	assert.Equal(t, "/", safeNext("//example.com"))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
