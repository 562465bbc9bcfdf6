package pages

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shishobooks/locallibrary/pkg/models"
)

const baseTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>%s | Local Library</title>
  <style>
    body { font-family: sans-serif; margin: 0; display: flex; }
    a { color: #1a4f8b; }
    .sidebar { width: 200px; padding: 16px; background: #f4f4f4; min-height: 100vh; }
    .sidebar ul { list-style: none; padding: 0; }
    .sidebar li { margin: 6px 0; }
    .content { padding: 16px 24px; flex: 1; }
    .item { padding: 8px 0; border-bottom: 1px solid #ddd; }
    .item-meta { font-size: 0.9em; color: #666; }
    .status-a { color: green; }
    .status-m { color: red; }
    .status-o, .status-r { color: orange; }
    .overdue { color: red; font-weight: bold; }
    .errors { color: red; }
    .nav { margin: 16px 0; }
    form.inline { display: inline; }
  </style>
</head>
<body>
  %s
  <div class="content">
  %s
  </div>
</body>
</html>`

// RenderPage wraps content in the base template with the sidebar for user.
func RenderPage(title string, user *models.User, content string) string {
	return fmt.Sprintf(baseTemplate, html.EscapeString(title), sidebar(user), content)
}

func sidebar(user *models.User) string {
	var b strings.Builder
	b.WriteString(`<div class="sidebar"><ul>`)
	b.WriteString(`<li><a href="/">Home</a></li>`)
	b.WriteString(`<li><a href="/catalog/books">All books</a></li>`)
	b.WriteString(`<li><a href="/catalog/authors">All authors</a></li>`)
	b.WriteString(`</ul><ul>`)
	if user.IsAuthenticated() {
		fmt.Fprintf(&b, `<li>User: %s</li>`, html.EscapeString(user.Username))
		b.WriteString(`<li><a href="/catalog/mybooks">My borrowed</a></li>`)
		b.WriteString(`<li><form class="inline" method="post" action="/catalog/logout"><button type="submit">Logout</button></form></li>`)
	} else {
		b.WriteString(`<li><a href="/catalog/login">Login</a></li>`)
	}
	b.WriteString(`</ul>`)
	if canManageLoans(user) {
		b.WriteString(`<ul><li>Staff</li><li><a href="/catalog/borrowed">All borrowed</a></li></ul>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func canManageLoans(user *models.User) bool {
	return user.IsAuthenticated() && user.HasPermission(models.ResourceLoans, models.OperationMarkReturned)
}

func link(href, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(text))
}

// pagination renders previous/next links in the style of the book and author
// lists. page is 1-based.
func pagination(baseURL string, page, totalPages int) string {
	if totalPages <= 1 {
		return ""
	}

	pageURL := func(p int) string {
		return baseURL + "?page=" + strconv.Itoa(p)
	}

	var parts []string
	if page > 1 {
		parts = append(parts, link(pageURL(page-1), "previous"))
	}
	parts = append(parts, fmt.Sprintf("Page %d of %d.", page, totalPages))
	if page < totalPages {
		parts = append(parts, link(pageURL(page+1), "next"))
	}
	return `<div class="nav">` + strings.Join(parts, " ") + `</div>`
}

func instanceStatus(instance *models.BookInstance) string {
	return fmt.Sprintf(`<span class="status-%s">%s</span>`, string(instance.Status), html.EscapeString(instance.Status.Label()))
}

func renewForm(instance *models.BookInstance, today time.Time, value, errMsg string) string {
	var b strings.Builder
	title := ""
	if instance.Book != nil {
		title = instance.Book.Title
	}
	fmt.Fprintf(&b, `<h1>Renew: %s</h1>`, html.EscapeString(title))
	if instance.Borrower != nil {
		fmt.Fprintf(&b, `<p>Borrower: %s</p>`, html.EscapeString(instance.Borrower.Username))
	}
	if instance.DueBack != nil {
		fmt.Fprintf(&b, `<p>Due date: %s</p>`, dueDate(instance, today))
	}
	if errMsg != "" {
		fmt.Fprintf(&b, `<ul class="errors"><li>%s</li></ul>`, html.EscapeString(errMsg))
	}
	fmt.Fprintf(&b, `<form method="post" action="/catalog/instances/%s/renew">
  <label for="id_renewal_date">Renewal date:</label>
  <input type="date" id="id_renewal_date" name="renewal_date" value="%s" required>
  <p class="item-meta">Enter a date between now and 4 weeks (default 3).</p>
  <input type="submit" value="Submit">
</form>`, url.PathEscape(instance.ID), html.EscapeString(value))
	return b.String()
}

// dueDate renders the copy's due date, flagged when it has passed.
func dueDate(instance *models.BookInstance, today time.Time) string {
	if instance.DueBack == nil {
		return ""
	}
	if instance.IsOverdue(today) {
		return `<span class="overdue">` + models.FormatDate(instance.DueBack) + `</span>`
	}
	return models.FormatDate(instance.DueBack)
}

func loginForm(next, username, errMsg string) string {
	var b strings.Builder
	b.WriteString(`<h1>Login</h1>`)
	if errMsg != "" {
		fmt.Fprintf(&b, `<p class="errors">%s</p>`, html.EscapeString(errMsg))
	}
	fmt.Fprintf(&b, `<form method="post" action="/catalog/login">
  <p><label for="id_username">Username:</label> <input type="text" id="id_username" name="username" value="%s" required></p>
  <p><label for="id_password">Password:</label> <input type="password" id="id_password" name="password" required></p>
  <input type="hidden" name="next" value="%s">
  <input type="submit" value="Login">
</form>`, html.EscapeString(username), html.EscapeString(next))
	return b.String()
}

func errorContent(status int, message string) string {
	return fmt.Sprintf(`<h1>%d</h1><p>%s</p>`, status, html.EscapeString(message))
}
