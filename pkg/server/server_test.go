package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shishobooks/locallibrary/pkg/config"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	cfg := config.NewForTest()
	e, err := newEcho(cfg, db)
	require.NoError(t, err)

	author := testutils.CreateAuthor(t, db, "Ursula", "Le Guin")
	book := testutils.CreateBook(t, db, author, "A Wizard of Earthsea", "9780553383041")
	testutils.CreateInstance(t, db, book)
	testutils.CreateUser(t, db, "member", models.RoleMember)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"home page", http.MethodGet, "/", "", http.StatusOK},
		{"catalog summary", http.MethodGet, "/catalog/summary", "", http.StatusOK},
		{"book list", http.MethodGet, "/books", "", http.StatusOK},
		{"genre list", http.MethodGet, "/genres", "", http.StatusOK},
		{"author list", http.MethodGet, "/authors", "", http.StatusOK},
		{"instance list", http.MethodGet, "/instances", "", http.StatusOK},
		{"search", http.MethodGet, "/search/books?search=wizard", "", http.StatusOK},
		{"create book needs a login", http.MethodPost, "/books", `{}`, http.StatusUnauthorized},
		{"my loans needs a login", http.MethodGet, "/catalog/my-loans", "", http.StatusUnauthorized},
		{"all loans needs a login", http.MethodGet, "/catalog/loans", "", http.StatusUnauthorized},
		{"return needs a login", http.MethodPost, "/loans/abc/return", "", http.StatusUnauthorized},
		{"roles need a login", http.MethodGet, "/roles", "", http.StatusUnauthorized},
		{"reindex needs a login", http.MethodPost, "/search/reindex", "", http.StatusUnauthorized},
		{"unknown path", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			e.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}
