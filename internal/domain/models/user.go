// internal/domain/models/user.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account that can sign in to the application.
//
// Username is what the user types to identify themselves (stored as
// entered); UsernameCI is the folded form used for case/diacritic-
// insensitive uniqueness and lookup.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username   string             `bson:"username" json:"username"`
	UsernameCI string             `bson:"username_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	FirstName  string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName   string             `bson:"last_name,omitempty" json:"last_name,omitempty"`

	PasswordHash string `bson:"password_hash,omitempty" json:"-"` // bcrypt hash (never in JSON)

	Role   string `bson:"role" json:"role"`                         // superuser, staff
	Status string `bson:"status,omitempty" json:"status,omitempty"` // active, disabled

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleSuperuser = "superuser"
	RoleStaff     = "staff"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleSuperuser,
		RoleStaff,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// FullName joins the first and last names, skipping empty parts.
// Falls back to the username when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}
