// internal/app/system/accountevents/hooks.go
package accountevents

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/store/activitylog"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	"github.com/dalemusser/stratafolio/internal/app/system/network"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds account event handling configuration.
type Config struct {
	// Activity controls recording of login/logout/failed-login events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Activity string
}

// Hooks reacts to account lifecycle and authentication events. Profile
// maintenance mirrors user writes; sign-in traffic lands in the
// activity log. All methods are best-effort: a failed hook is logged
// and never surfaces to the caller.
type Hooks struct {
	profiles *profiles.Store
	activity *activitylog.Store
	zapLog   *zap.Logger
	config   Config
}

// New creates account event Hooks.
func New(profileStore *profiles.Store, activityStore *activitylog.Store, zapLog *zap.Logger, config Config) *Hooks {
	return &Hooks{
		profiles: profileStore,
		activity: activityStore,
		zapLog:   zapLog,
		config:   config,
	}
}

// --- User lifecycle ---

// UserCreated ensures the new user gets an empty profile.
func (h *Hooks) UserCreated(ctx context.Context, userID primitive.ObjectID) {
	if h == nil {
		return
	}
	if _, err := h.profiles.EnsureForUser(ctx, userID); err != nil {
		h.zapLog.Error("failed to create profile for new user",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
	}
}

// UserUpdated re-persists the user's profile so its updated_at tracks
// the account. Creates the profile if it went missing.
func (h *Hooks) UserUpdated(ctx context.Context, userID primitive.ObjectID) {
	if h == nil {
		return
	}
	if _, err := h.profiles.EnsureForUser(ctx, userID); err != nil {
		h.zapLog.Error("failed to ensure profile for updated user",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return
	}
	if err := h.profiles.Touch(ctx, userID); err != nil {
		h.zapLog.Error("failed to touch profile for updated user",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
	}
}

// UserDeleted removes the deleted user's profile. Activity log rows are
// left in place; they keep a username snapshot for exactly this case.
func (h *Hooks) UserDeleted(ctx context.Context, userID primitive.ObjectID) {
	if h == nil {
		return
	}
	if _, err := h.profiles.DeleteByUserID(ctx, userID); err != nil {
		h.zapLog.Error("failed to delete profile for removed user",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
	}
}

// --- Authentication events ---

// LoginSucceeded records a successful login in the activity log.
func (h *Hooks) LoginSucceeded(ctx context.Context, r *http.Request, userID primitive.ObjectID, username, sessionKey string) {
	ip, userAgent := requestInfo(r)
	h.record(ctx, models.ActivityEntry{
		Action:     models.ActionLogin,
		UserID:     &userID,
		Username:   username,
		IP:         ip,
		UserAgent:  userAgent,
		SessionKey: sessionKey,
	})
}

// LoggedOut records a logout. Anonymous logouts are skipped: with no
// account attached there is nothing meaningful to record.
func (h *Hooks) LoggedOut(ctx context.Context, r *http.Request, userID primitive.ObjectID, username, sessionKey string) {
	if userID.IsZero() {
		return
	}
	ip, userAgent := requestInfo(r)
	h.record(ctx, models.ActivityEntry{
		Action:     models.ActionLogout,
		UserID:     &userID,
		Username:   username,
		IP:         ip,
		UserAgent:  userAgent,
		SessionKey: sessionKey,
	})
}

// LoginFailed records a failed login attempt. The attempted username
// is kept as a snapshot; when it is empty, "unknown" is stored.
func (h *Hooks) LoginFailed(ctx context.Context, r *http.Request, attemptedUsername string) {
	if attemptedUsername == "" {
		attemptedUsername = "unknown"
	}
	ip, userAgent := requestInfo(r)
	h.record(ctx, models.ActivityEntry{
		Action:    models.ActionFailedLogin,
		Username:  attemptedUsername,
		IP:        ip,
		UserAgent: userAgent,
	})
}

// requestInfo extracts the client IP and user agent. Auth events can
// fire without an HTTP request (management commands, tests); a nil
// request yields empty values.
func requestInfo(r *http.Request) (ip, userAgent string) {
	if r == nil {
		return "", ""
	}
	return network.GetClientIP(r), r.UserAgent()
}

// record routes an activity entry per configuration.
// If the hooks are nil, this is a no-op (allows tests to use nil hooks).
func (h *Hooks) record(ctx context.Context, entry models.ActivityEntry) {
	if h == nil {
		return
	}

	setting := h.config.Activity
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		h.logToZap(entry)
	}

	if setting == "all" || setting == "db" {
		if err := h.activity.Log(ctx, entry); err != nil {
			h.zapLog.Error("failed to store activity entry",
				zap.Error(err),
				zap.String("action", entry.Action))
		}
	}
}

// logToZap logs the entry to zap with consistent structure.
func (h *Hooks) logToZap(entry models.ActivityEntry) {
	fields := []zap.Field{
		zap.Bool("activity", true),
		zap.String("action", entry.Action),
		zap.String("username", entry.Username),
		zap.String("ip", entry.IP),
	}
	if entry.UserID != nil {
		fields = append(fields, zap.String("user_id", entry.UserID.Hex()))
	}
	if entry.SessionKey != "" {
		fields = append(fields, zap.String("session_key", entry.SessionKey))
	}

	if entry.Action == models.ActionFailedLogin {
		h.zapLog.Warn("account activity", fields...)
	} else {
		h.zapLog.Info("account activity", fields...)
	}
}
