// internal/app/features/login/login.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/accountevents"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authutil"
	"github.com/dalemusser/stratafolio/internal/app/system/status"
	"github.com/dalemusser/stratafolio/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides login handlers.
type Handler struct {
	userStore  *userstore.Store
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
	events     *accountevents.Hooks
	logger     *zap.Logger
}

// NewHandler creates a new login Handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	events *accountevents.Hooks,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:  userstore.New(db),
		sessionMgr: sessionMgr,
		errLog:     errLog,
		events:     events,
		logger:     logger,
	}
}

// LoginVM is the view model for the login page.
type LoginVM struct {
	viewdata.BaseVM
	Error     string
	Username  string
	ReturnURL string
}

// Routes returns a chi.Router with login routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.showLogin)
	r.Post("/", h.handleLogin)

	return r
}

// showLogin displays the login form.
func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	// Already signed in users go straight to their profile.
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	// Map error codes to user-friendly messages
	errorCode := r.URL.Query().Get("error")
	errorMsg := ""
	switch errorCode {
	case "account_disabled":
		errorMsg = "Account is disabled."
	case "service_unavailable":
		errorMsg = "Service temporarily unavailable. Please try again."
	case "":
		// No error
	default:
		errorMsg = errorCode
	}

	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		ReturnURL: query.Get(r, "next"),
		Error:     errorMsg,
	}
	vm.Title = "Login"

	templates.Render(w, r, "login/index", vm)
}

// handleLogin validates the username and password and creates a session.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	returnURL := r.FormValue("next")

	if username == "" || password == "" {
		h.renderError(w, r, "Please enter your username and password.", username, returnURL)
		return
	}

	user, err := h.userStore.GetByUsername(r.Context(), username)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Record the attempt so repeated probing is visible in the log.
			h.events.LoginFailed(r.Context(), r, username)
			h.renderError(w, r, "Invalid username or password.", username, returnURL)
			return
		}
		h.errLog.Log(r, "database error during login lookup", err)
		h.renderError(w, r, "Service temporarily unavailable. Please try again.", username, returnURL)
		return
	}

	if user.Status != status.Active {
		h.events.LoginFailed(r.Context(), r, username)
		h.renderError(w, r, "Account is disabled.", username, returnURL)
		return
	}

	if user.PasswordHash == "" || !authutil.CheckPassword(password, user.PasswordHash) {
		h.events.LoginFailed(r.Context(), r, username)
		h.renderError(w, r, "Invalid username or password.", username, returnURL)
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		h.errLog.Log(r, "failed to generate session token", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.sessionMgr.CreateSession(w, r, user.ID, user.Role, token); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.events.LoginSucceeded(r.Context(), r, user.ID, user.Username, token)
	h.logger.Info("user logged in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("username", user.Username))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/profile"), http.StatusSeeOther)
}

// renderError re-renders the login form with an error message.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, msg, username, returnURL string) {
	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		Error:     msg,
		Username:  username,
		ReturnURL: returnURL,
	}
	vm.Title = "Login"
	templates.Render(w, r, "login/index", vm)
}
