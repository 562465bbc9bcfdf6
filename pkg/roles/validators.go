package roles

// PermissionInput is one resource/operation pair granted to a role.
type PermissionInput struct {
	Resource  string `json:"resource" validate:"required"`
	Operation string `json:"operation" validate:"required"`
}

type CreateRolePayload struct {
	Name        string            `json:"name" validate:"required,max=50"`
	Permissions []PermissionInput `json:"permissions" validate:"dive"`
}

type UpdateRolePayload struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=50"`
	// Permissions replaces every grant when present, including with an empty list.
	Permissions *[]PermissionInput `json:"permissions,omitempty" validate:"omitempty,dive"`
}

type ListRolesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=50"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
