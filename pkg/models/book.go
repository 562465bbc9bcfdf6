package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MaxBookTitleLength   = 200
	MaxBookSummaryLength = 1000
	ISBNLength           = 13
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int             `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Title     string          `bun:",nullzero" json:"title"`
	AuthorID  int             `bun:",nullzero" json:"author_id"`
	Author    *Author         `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	Summary   string          `bun:",notnull" json:"summary"`
	ISBN      string          `bun:"isbn,nullzero" json:"isbn"`
	Genres    []*BookGenre    `bun:"rel:has-many,join:id=book_id" json:"genres,omitempty"`
	Instances []*BookInstance `bun:"rel:has-many,join:id=book_id" json:"instances,omitempty"`
}

func (b *Book) String() string {
	return b.Title
}

// GenreNames returns the names of the loaded genres in their loaded order.
func (b *Book) GenreNames() []string {
	names := make([]string, 0, len(b.Genres))
	for _, bg := range b.Genres {
		if bg.Genre != nil {
			names = append(names, bg.Genre.Name)
		}
	}
	return names
}
