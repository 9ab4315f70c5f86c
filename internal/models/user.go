package models

import "time"

// Account roles. Viewers watch the instrument; operators may drive it and edit programs.
const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// User is an account allowed to use the HTTP API.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialized
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidRole reports whether role names a known account role.
func ValidRole(role string) bool {
	return role == RoleOperator || role == RoleViewer
}
