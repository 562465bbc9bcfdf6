package pages

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/auth"
	"github.com/shishobooks/locallibrary/pkg/authors"
	"github.com/shishobooks/locallibrary/pkg/books"
	"github.com/shishobooks/locallibrary/pkg/catalog"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/loans"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/visits"
)

const (
	pageSize          = 10
	VisitorCookieName = "locallibrary_visitor"
)

type handler struct {
	authService    *auth.Service
	authorService  *authors.Service
	bookService    *books.Service
	catalogService *catalog.Service
	loanService    *loans.Service
	visitCounter   visits.Counter
}

func (h *handler) render(c echo.Context, status int, title, content string) error {
	return errors.WithStack(c.HTML(status, RenderPage(title, auth.CurrentUser(c), content)))
}

func pageParam(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func totalPages(total int) int {
	return (total + pageSize - 1) / pageSize
}

// visitorID returns the visitor cookie, issuing a new one on first visit.
func visitorID(c echo.Context) string {
	if cookie, err := c.Cookie(VisitorCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *handler) index(c echo.Context) error {
	ctx := c.Request().Context()

	summary, err := h.catalogService.Summary(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	visits, err := h.visitCounter.Increment(ctx, visitorID(c))
	if err != nil {
		return errors.WithStack(err)
	}

	var content strings.Builder
	content.WriteString(`<h1>Local Library Home</h1>`)
	content.WriteString(`<p>Welcome to Local Library, a very basic catalog of the books we hold.</p>`)
	content.WriteString(`<h2>Dynamic content</h2>`)
	content.WriteString(`<p>The library has the following record counts:</p><ul>`)
	fmt.Fprintf(&content, `<li><strong>Books:</strong> %d</li>`, summary.Books)
	fmt.Fprintf(&content, `<li><strong>Copies:</strong> %d</li>`, summary.Instances)
	fmt.Fprintf(&content, `<li><strong>Copies available:</strong> %d</li>`, summary.AvailableInstances)
	fmt.Fprintf(&content, `<li><strong>Authors:</strong> %d</li>`, summary.Authors)
	fmt.Fprintf(&content, `<li><strong>Genres:</strong> %d</li>`, summary.Genres)
	content.WriteString(`</ul>`)
	fmt.Fprintf(&content, `<p>You have visited this page %d %s.</p>`, visits, plural(visits, "time", "times"))

	return h.render(c, http.StatusOK, "Home", content.String())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (h *handler) bookList(c echo.Context) error {
	ctx := c.Request().Context()
	page := pageParam(c)
	limit := pageSize
	offset := (page - 1) * pageSize

	list, total, err := h.bookService.ListBooksWithTotal(ctx, books.ListBooksOptions{
		Limit:  &limit,
		Offset: &offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	var content strings.Builder
	content.WriteString(`<h1>Book List</h1>`)
	if len(list) == 0 {
		content.WriteString(`<p>There are no books in the library.</p>`)
	}
	content.WriteString(`<ul>`)
	for _, book := range list {
		author := ""
		if book.Author != nil {
			author = " (" + book.Author.DisplayName() + ")"
		}
		fmt.Fprintf(&content, `<li>%s%s</li>`, link(fmt.Sprintf("/catalog/books/%d", book.ID), book.Title), html.EscapeString(author))
	}
	content.WriteString(`</ul>`)
	content.WriteString(pagination("/catalog/books", page, totalPages(total)))

	return h.render(c, http.StatusOK, "Books", content.String())
}

func (h *handler) bookDetail(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	user := auth.CurrentUser(c)
	today := h.loanService.Today()

	var content strings.Builder
	fmt.Fprintf(&content, `<h1>Title: %s</h1>`, html.EscapeString(book.Title))
	if book.Author != nil {
		fmt.Fprintf(&content, `<p><strong>Author:</strong> %s</p>`, link(fmt.Sprintf("/catalog/authors/%d", book.Author.ID), book.Author.DisplayName()))
	}
	fmt.Fprintf(&content, `<p><strong>Summary:</strong> %s</p>`, html.EscapeString(book.Summary))
	fmt.Fprintf(&content, `<p><strong>ISBN:</strong> %s</p>`, html.EscapeString(book.ISBN))
	fmt.Fprintf(&content, `<p><strong>Genre:</strong> %s</p>`, html.EscapeString(strings.Join(book.GenreNames(), ", ")))

	content.WriteString(`<h2>Copies</h2>`)
	if len(book.Instances) == 0 {
		content.WriteString(`<p>There are no copies of this book in the library.</p>`)
	}
	for _, instance := range book.Instances {
		content.WriteString(`<div class="item">`)
		fmt.Fprintf(&content, `<p>%s</p>`, instanceStatus(instance))
		if instance.Status != models.LoanStatusAvailable && instance.DueBack != nil {
			fmt.Fprintf(&content, `<p><strong>Due to be returned:</strong> %s</p>`, dueDate(instance, today))
		}
		fmt.Fprintf(&content, `<p><strong>Imprint:</strong> %s</p>`, html.EscapeString(instance.Imprint))
		fmt.Fprintf(&content, `<p class="item-meta"><strong>Id:</strong> %s</p>`, html.EscapeString(instance.ID))
		if canManageLoans(user) && instance.Status == models.LoanStatusOnLoan {
			content.WriteString(loanActions(instance))
		}
		content.WriteString(`</div>`)
	}

	return h.render(c, http.StatusOK, book.Title, content.String())
}

func loanActions(instance *models.BookInstance) string {
	id := url.PathEscape(instance.ID)
	return fmt.Sprintf(`<p>%s <form class="inline" method="post" action="/catalog/instances/%s/return"><button type="submit">Mark returned</button></form></p>`,
		link("/catalog/instances/"+instance.ID+"/renew", "Renew"), id)
}

func (h *handler) authorList(c echo.Context) error {
	ctx := c.Request().Context()
	page := pageParam(c)
	limit := pageSize
	offset := (page - 1) * pageSize

	list, total, err := h.authorService.ListAuthorsWithTotal(ctx, authors.ListAuthorsOptions{
		Limit:  &limit,
		Offset: &offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	var content strings.Builder
	content.WriteString(`<h1>Author List</h1>`)
	if len(list) == 0 {
		content.WriteString(`<p>There are no authors available.</p>`)
	}
	content.WriteString(`<ul>`)
	for _, author := range list {
		fmt.Fprintf(&content, `<li>%s %s</li>`, link(fmt.Sprintf("/catalog/authors/%d", author.ID), author.DisplayName()), html.EscapeString(lifespan(author)))
	}
	content.WriteString(`</ul>`)
	content.WriteString(pagination("/catalog/authors", page, totalPages(total)))

	return h.render(c, http.StatusOK, "Authors", content.String())
}

func lifespan(author *models.Author) string {
	if author.DateOfBirth == nil && author.DateOfDeath == nil {
		return ""
	}
	return "(" + models.FormatDate(author.DateOfBirth) + " - " + models.FormatDate(author.DateOfDeath) + ")"
}

func (h *handler) authorDetail(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, authors.RetrieveAuthorOptions{ID: &id, IncludeBooks: true})
	if err != nil {
		return errors.WithStack(err)
	}

	var content strings.Builder
	fmt.Fprintf(&content, `<h1>Author: %s</h1>`, html.EscapeString(author.DisplayName()))
	if span := lifespan(author); span != "" {
		fmt.Fprintf(&content, `<p>%s</p>`, html.EscapeString(span))
	}
	content.WriteString(`<h2>Books</h2>`)
	if len(author.Books) == 0 {
		content.WriteString(`<p>This author has no books.</p>`)
	}
	for _, book := range author.Books {
		content.WriteString(`<div class="item">`)
		content.WriteString(link(fmt.Sprintf("/catalog/books/%d", book.ID), book.Title))
		fmt.Fprintf(&content, `<p class="item-meta">%s</p>`, html.EscapeString(book.Summary))
		content.WriteString(`</div>`)
	}

	return h.render(c, http.StatusOK, author.DisplayName(), content.String())
}

func (h *handler) myBooks(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)
	if user == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	instances, err := h.catalogService.ListOnLoanForUser(ctx, user.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	today := h.loanService.Today()

	var content strings.Builder
	content.WriteString(`<h1>Borrowed books</h1>`)
	if len(instances) == 0 {
		content.WriteString(`<p>There are no books borrowed.</p>`)
	}
	content.WriteString(`<ul>`)
	for _, instance := range instances {
		fmt.Fprintf(&content, `<li>%s (%s)</li>`, bookLink(instance), dueDate(instance, today))
	}
	content.WriteString(`</ul>`)

	return h.render(c, http.StatusOK, "My borrowed", content.String())
}

func bookLink(instance *models.BookInstance) string {
	if instance.Book == nil {
		return html.EscapeString(instance.ID)
	}
	return link(fmt.Sprintf("/catalog/books/%d", instance.Book.ID), instance.Book.Title)
}

func (h *handler) borrowed(c echo.Context) error {
	ctx := c.Request().Context()

	instances, err := h.catalogService.ListOnLoan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	today := h.loanService.Today()

	var content strings.Builder
	content.WriteString(`<h1>All borrowed books</h1>`)
	if len(instances) == 0 {
		content.WriteString(`<p>There are no books borrowed.</p>`)
	}
	content.WriteString(`<ul>`)
	for _, instance := range instances {
		borrower := "unknown"
		if instance.Borrower != nil {
			borrower = instance.Borrower.Username
		}
		fmt.Fprintf(&content, `<li>%s (%s) - %s %s</li>`, bookLink(instance), dueDate(instance, today), html.EscapeString(borrower), loanActions(instance))
	}
	content.WriteString(`</ul>`)

	return h.render(c, http.StatusOK, "All borrowed", content.String())
}

func (h *handler) renewForm(c echo.Context) error {
	ctx := c.Request().Context()

	instance, proposed, err := h.loanService.RetrieveForRenewal(ctx, loans.CallerFrom(c), c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	content := renewForm(instance, h.loanService.Today(), proposed.Format(models.DateLayout), "")
	return h.render(c, http.StatusOK, "Renew", content)
}

// renew saves the new due date. A rejected date re-renders the form with the
// submitted value and the reason; nothing is written.
func (h *handler) renew(c echo.Context) error {
	ctx := c.Request().Context()
	caller := loans.CallerFrom(c)
	id := c.Param("id")

	instance, _, err := h.loanService.RetrieveForRenewal(ctx, caller, id)
	if err != nil {
		return errors.WithStack(err)
	}

	value := strings.TrimSpace(c.FormValue("renewal_date"))
	rerender := func(msg string) error {
		content := renewForm(instance, h.loanService.Today(), value, msg)
		return h.render(c, http.StatusUnprocessableEntity, "Renew", content)
	}

	date, err := models.ParseDate(value)
	if err != nil {
		return rerender("Enter a valid date.")
	}

	_, err = h.loanService.Renew(ctx, caller, id, date)
	if err != nil {
		var e *errcodes.Error
		if errors.As(err, &e) && e.Code == "validation_error" {
			return rerender(e.Message)
		}
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Redirect(http.StatusSeeOther, "/catalog/borrowed"))
}

func (h *handler) markReturned(c echo.Context) error {
	ctx := c.Request().Context()

	_, err := h.loanService.MarkReturned(ctx, loans.CallerFrom(c), c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Redirect(http.StatusSeeOther, "/catalog/borrowed"))
}

func (h *handler) loginForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "Login", loginForm(c.QueryParam("next"), "", ""))
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()
	username := strings.TrimSpace(c.FormValue("username"))
	next := c.FormValue("next")

	user, err := h.authService.Authenticate(ctx, username, c.FormValue("password"))
	if err != nil {
		if errcodes.HasCode(err, "authentication_required") {
			content := loginForm(next, username, "Your username and password didn't match. Please try again.")
			return h.render(c, http.StatusUnauthorized, "Login", content)
		}
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	auth.SetSessionCookie(c, token)

	logger.FromContext(ctx).Info("user logged in", logger.Data{"user_id": user.ID})

	return errors.WithStack(c.Redirect(http.StatusSeeOther, safeNext(next)))
}

// safeNext only follows local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *handler) logout(c echo.Context) error {
	auth.ClearSessionCookie(c)
	return errors.WithStack(c.Redirect(http.StatusSeeOther, "/"))
}
