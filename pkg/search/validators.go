package search

// BookSearchResult represents a book in search results.
type BookSearchResult struct {
	ID     int    `bun:"id" json:"id"`
	Title  string `bun:"title" json:"title"`
	Author string `bun:"author" json:"author"`
}

// BooksQuery represents the query parameters for book search.
type BooksQuery struct {
	Query  string `query:"search" json:"search,omitempty" validate:"required,max=100"`
	Limit  int    `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset int    `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
