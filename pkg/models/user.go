package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `bun:",nullzero" json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // Never expose password hash
	RoleID       int       `json:"role_id"`
	IsActive     bool      `json:"is_active"`
	LoanCount    int       `bun:",scanonly" json:"loan_count"`

	// Relations
	Role *Role `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

// IsAuthenticated reports whether u identifies an active account. It is safe
// to call on a nil user, which is how anonymous callers are represented.
func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != 0 && u.IsActive
}

// HasPermission checks if the user has a specific permission.
func (u *User) HasPermission(resource, operation string) bool {
	if u == nil || u.Role == nil {
		return false
	}
	return u.Role.HasPermission(resource, operation)
}

// Permissions flattens the role's permissions into "resource:operation" strings.
func (u *User) Permissions() []string {
	permissions := make([]string, 0)
	if u == nil || u.Role == nil {
		return permissions
	}
	for _, p := range u.Role.Permissions {
		permissions = append(permissions, p.Resource+":"+p.Operation)
	}
	return permissions
}
