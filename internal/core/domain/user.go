package domain

import "time"

// Role tags. A user may hold several at once (e.g. a shogun-admin who also
// takes assignments as a shogun).
const (
	RoleShogunAdmin = "shogun-admin"
	RoleShogun      = "shogun"
	RoleClient      = "client"
	RoleSponsor     = "sponsor"
)

// User models an authenticated actor in the system.
//
// Roles is the canonical list of role tags. Legacy records created before
// multi-role support carry a singular Role field instead; DeriveRoles folds
// both shapes into one RoleSet.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	Role         string    `json:"-"` // legacy singular role: "admin" | "user"
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
