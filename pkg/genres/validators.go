package genres

type CreateGenrePayload struct {
	Name string `json:"name" mod:"trim" validate:"required,max=200"`
}

type UpdateGenrePayload struct {
	Name *string `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
}

type MergeGenresPayload struct {
	SourceID int `json:"source_id" validate:"required,min=1"`
}

type ListGenresQuery struct {
	Limit  int     `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}
