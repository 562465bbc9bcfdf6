package users

type CreateUserPayload struct {
	Username string  `json:"username" mod:"trim" validate:"required,min=3,max=50"`
	Email    *string `json:"email,omitempty" mod:"trim" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8"`
	RoleID   int     `json:"role_id" validate:"required"`
}

type UpdateUserPayload struct {
	Username *string `json:"username,omitempty" mod:"trim" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email,omitempty" mod:"trim" validate:"omitempty,email"`
	RoleID   *int    `json:"role_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ResetPasswordPayload needs current_password only when users reset their
// own password.
type ResetPasswordPayload struct {
	CurrentPassword *string `json:"current_password,omitempty"`
	NewPassword     string  `json:"new_password" validate:"required,min=8"`
}

type ListUsersQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	ActiveOnly bool    `query:"active_only" json:"active_only,omitempty"`
	Borrowing  bool    `query:"borrowing" json:"borrowing,omitempty"`
	Search     *string `query:"search" json:"search,omitempty" validate:"omitempty,max=50"`
}
