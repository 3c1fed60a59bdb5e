// internal/domain/models/activitylog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity log actions
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionFailedLogin = "failed_login"
)

// ActivityEntry is one row in the append-only account activity log.
//
// Username is a snapshot taken at event time so entries stay readable
// after the account is renamed or deleted. UserID is nil for failed
// logins where no account matched.
type ActivityEntry struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Action     string              `bson:"action" json:"action"` // login, logout, failed_login
	UserID     *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Username   string              `bson:"username" json:"username"`
	IP         string              `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent  string              `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	SessionKey string              `bson:"session_key,omitempty" json:"session_key,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}

// AllActions returns the log actions in display order.
func AllActions() []string {
	return []string{ActionLogin, ActionLogout, ActionFailedLogin}
}

// IsValidAction checks if an action is one of the known log actions.
func IsValidAction(action string) bool {
	switch action {
	case ActionLogin, ActionLogout, ActionFailedLogin:
		return true
	}
	return false
}
