// internal/app/system/authutil/authutil.go
// Package authutil provides centralized credential field handling
// for user creation and editing forms.
package authutil

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"errors"
	"strings"

	"github.com/dalemusser/stratafolio/internal/app/system/inputval"
)

// CredentialInput holds the raw form values for credential fields.
type CredentialInput struct {
	Username string
	Email    string
	Password string
	IsEdit   bool // If true, password is optional (leave blank to keep existing)
}

// CredentialResult holds the validated and processed credential fields
// ready for storage.
type CredentialResult struct {
	Username     string
	Email        string
	PasswordHash *string // bcrypt hash (set if password provided)
}

// Common validation errors
var (
	ErrUsernameRequired = errors.New("Username is required.")
	ErrInvalidEmail     = errors.New("Please enter a valid email address.")
	ErrPasswordNewUser  = errors.New("Password is required for new accounts.")
)

// ValidateAndResolve validates the credential input and returns the
// resolved fields ready for storage.
func ValidateAndResolve(input CredentialInput) (*CredentialResult, error) {
	result := &CredentialResult{}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	result.Username = username

	if input.Email != "" {
		if !inputval.IsValidEmail(input.Email) {
			return nil, ErrInvalidEmail
		}
		result.Email = input.Email
	}

	if input.Password == "" {
		if !input.IsEdit {
			return nil, ErrPasswordNewUser
		}
		return result, nil
	}

	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	result.PasswordHash = &hash

	return result, nil
}
