package books

type CreateBookPayload struct {
	Title    string `json:"title" mod:"trim" validate:"required,max=200"`
	AuthorID int    `json:"author_id" validate:"required,min=1"`
	Summary  string `json:"summary" mod:"trim" validate:"required,max=1000"`
	ISBN     string `json:"isbn" mod:"trim" validate:"required,isbn"`
	GenreIDs []int  `json:"genre_ids,omitempty" validate:"omitempty,dive,min=1"`
}

type UpdateBookPayload struct {
	Title    *string `json:"title,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
	AuthorID *int    `json:"author_id,omitempty" validate:"omitempty,min=1"`
	Summary  *string `json:"summary,omitempty" mod:"trim" validate:"omitempty,min=1,max=1000"`
	ISBN     *string `json:"isbn,omitempty" mod:"trim" validate:"omitempty,isbn"`
	GenreIDs *[]int  `json:"genre_ids,omitempty" validate:"omitempty,dive,min=1"`
}

type ListBooksQuery struct {
	Limit    int     `query:"limit" json:"limit" default:"24" validate:"min=1,max=50"`
	Offset   int     `query:"offset" json:"offset" validate:"min=0"`
	AuthorID *int    `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
	GenreID  *int    `query:"genre_id" json:"genre_id,omitempty" validate:"omitempty,min=1"`
	Search   *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}
