// internal/app/features/logout/logout.go
package logout

import (
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/system/accountevents"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provides logout handlers.
type Handler struct {
	sessionMgr *auth.SessionManager
	events     *accountevents.Hooks
	logger     *zap.Logger
}

// NewHandler creates a new logout Handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	events *accountevents.Hooks,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessionMgr: sessionMgr,
		events:     events,
		logger:     logger,
	}
}

// Routes returns a chi.Router with logout routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireAuth)
	r.Post("/", h.handleLogout)
	r.Get("/", h.handleLogout) // Allow GET for simple logout links
	return r
}

// handleLogout terminates the session.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r); ok {
		userID, err := primitive.ObjectIDFromHex(user.ID)
		if err != nil {
			h.logger.Warn("invalid user id in session during logout", zap.String("user_id", user.ID))
		} else {
			h.events.LoggedOut(r.Context(), r, userID, user.Username, user.SessionToken())
		}
	}

	h.sessionMgr.DestroySession(w, r)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
