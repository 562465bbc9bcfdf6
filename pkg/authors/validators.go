package authors

type CreateAuthorPayload struct {
	FirstName   string `json:"first_name" mod:"trim" validate:"required,max=100"`
	LastName    string `json:"last_name" mod:"trim" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"date"`
	DateOfDeath string `json:"date_of_death" validate:"date"`
}

// UpdateAuthorPayload only touches the fields that are present. An empty
// date string clears that date.
type UpdateAuthorPayload struct {
	FirstName   *string `json:"first_name,omitempty" mod:"trim" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name,omitempty" mod:"trim" validate:"omitempty,min=1,max=100"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,date"`
	DateOfDeath *string `json:"date_of_death,omitempty" validate:"omitempty,date"`
}

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}
