package bookinstances

type CreateInstancePayload struct {
	BookID  int    `json:"book_id" validate:"required,min=1"`
	Imprint string `json:"imprint" mod:"trim" validate:"required,max=200"`
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=m a r"`
}

type UpdateInstancePayload struct {
	Imprint *string `json:"imprint,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
}

type ListInstancesQuery struct {
	Limit  int     `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset" validate:"min=0"`
	BookID *int    `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,loan_status"`
}
