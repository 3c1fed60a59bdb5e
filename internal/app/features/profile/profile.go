// internal/app/features/profile/profile.go
package profile

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/accountevents"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authutil"
	"github.com/dalemusser/stratafolio/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratafolio/internal/app/system/inputval"
	"github.com/dalemusser/stratafolio/internal/app/system/viewdata"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides profile handlers.
type Handler struct {
	userStore    *userstore.Store
	profileStore *profiles.Store
	errLog       *errorsfeature.ErrorLogger
	events       *accountevents.Hooks
	logger       *zap.Logger
}

// NewHandler creates a new profile Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, events *accountevents.Hooks, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:    userstore.New(db),
		profileStore: profiles.New(db),
		errLog:       errLog,
		events:       events,
		logger:       logger,
	}
}

// ProfileVM is the view model for the profile page.
type ProfileVM struct {
	viewdata.BaseVM

	Subject     string
	ViewingSelf bool
	FullName    string
	Email       string
	RoleLabel   string
	HomeAddress string
	PhoneNumber string
	HasLocation bool
	Latitude    float64
	Longitude   float64

	PasswordRules string

	Success template.HTML
	Error   template.HTML
}

// EditVM is the view model for the profile edit form.
type EditVM struct {
	viewdata.BaseVM

	FirstName   string
	LastName    string
	Email       string
	HomeAddress string
	PhoneNumber string
	Latitude    string
	Longitude   string

	Error template.HTML
}

// Routes returns a chi.Router with profile routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.showProfile)
	r.Get("/edit", h.showEdit)
	r.Post("/edit", h.handleEdit)
	r.Post("/password", h.handleChangePassword)
	r.Get("/{username}", h.showUserProfile)

	return r
}

// showProfile displays the signed-in user's profile.
func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	profile, err := h.profileStore.EnsureForUser(r.Context(), user.ID)
	if err != nil {
		h.errLog.Log(r, "failed to load profile", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	vm := buildProfileVM(r, user, profile)

	switch r.URL.Query().Get("success") {
	case "profile":
		vm.Success = "Profile updated."
	case "password":
		vm.Success = "Password changed successfully."
	}

	templates.Render(w, r, "profile/show", vm)
}

// showUserProfile displays another user's profile to a superuser. Staff
// asking for their own username are sent to /profile; anything else is a 404
// so usernames cannot be probed.
func (h *Handler) showUserProfile(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	username := chi.URLParam(r, "username")
	if sessionUser.Role != models.RoleSuperuser {
		if strings.EqualFold(username, sessionUser.Username) {
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		http.NotFound(w, r)
		return
	}

	user, err := h.userStore.GetByUsername(r.Context(), username)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			http.NotFound(w, r)
			return
		}
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	profile, err := h.profileStore.EnsureForUser(r.Context(), user.ID)
	if err != nil {
		h.errLog.Log(r, "failed to load profile", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	vm := buildProfileVM(r, user, profile)
	vm.Title = user.Username
	vm.ViewingSelf = false
	vm.BackURL = "/admin/users"

	templates.Render(w, r, "profile/show", vm)
}

// showEdit displays the profile edit form.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	profile, err := h.profileStore.EnsureForUser(r.Context(), user.ID)
	if err != nil {
		h.errLog.Log(r, "failed to load profile", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	vm := EditVM{
		BaseVM:      viewdata.NewBaseVM(r, "Edit Profile", "/profile"),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		HomeAddress: profile.HomeAddress,
		PhoneNumber: profile.PhoneNumber,
	}
	if profile.HasLocation() {
		vm.Latitude = strconv.FormatFloat(profile.Location.Lat(), 'f', -1, 64)
		vm.Longitude = strconv.FormatFloat(profile.Location.Lng(), 'f', -1, 64)
	}

	templates.Render(w, r, "profile/edit", vm)
}

// handleEdit processes the profile edit form.
func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	email := strings.TrimSpace(r.FormValue("email"))
	homeAddress := htmlsanitize.Text(r.FormValue("home_address"))
	phoneNumber := htmlsanitize.Text(r.FormValue("phone_number"))
	latStr := strings.TrimSpace(r.FormValue("latitude"))
	lngStr := strings.TrimSpace(r.FormValue("longitude"))

	renderError := func(msg string) {
		vm := EditVM{
			BaseVM:      viewdata.NewBaseVM(r, "Edit Profile", "/profile"),
			FirstName:   firstName,
			LastName:    lastName,
			Email:       email,
			HomeAddress: homeAddress,
			PhoneNumber: phoneNumber,
			Latitude:    latStr,
			Longitude:   lngStr,
			Error:       template.HTML(msg),
		}
		templates.Render(w, r, "profile/edit", vm)
	}

	input := struct {
		FirstName string `validate:"max=150" label:"First name"`
		LastName  string `validate:"max=150" label:"Last name"`
		Email     string `validate:"max=254" label:"Email"`
	}{FirstName: firstName, LastName: lastName, Email: email}
	if result := inputval.Validate(input); result.HasErrors() {
		renderError(result.First())
		return
	}
	if email != "" && !inputval.IsValidEmail(email) {
		renderError("A valid email address is required.")
		return
	}

	// Latitude and longitude are set together or not at all.
	location, errMsg := parseLocation(latStr, lngStr)
	if errMsg != "" {
		renderError(errMsg)
		return
	}

	if err := h.userStore.UpdateFromInput(r.Context(), sessionUser.UserID(), userstore.UpdateInput{
		FirstName: &firstName,
		LastName:  &lastName,
		Email:     &email,
	}); err != nil {
		h.errLog.Log(r, "failed to update user", err)
		renderError("Failed to save your profile. Please try again.")
		return
	}

	if err := h.profileStore.UpdateByUserID(r.Context(), sessionUser.UserID(), profiles.UpdateInput{
		HomeAddress: &homeAddress,
		PhoneNumber: &phoneNumber,
		Location:    location,
		SetLocation: true,
	}); err != nil {
		h.errLog.Log(r, "failed to update profile", err)
		renderError("Failed to save your profile. Please try again.")
		return
	}

	h.events.UserUpdated(r.Context(), sessionUser.UserID())

	http.Redirect(w, r, "/profile?success=profile", http.StatusSeeOther)
}

// handleChangePassword processes the password change form.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	profile, err := h.profileStore.EnsureForUser(r.Context(), user.ID)
	if err != nil {
		h.errLog.Log(r, "failed to load profile", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	confirmPassword := r.FormValue("confirm_password")

	renderError := func(msg string) {
		vm := buildProfileVM(r, user, profile)
		vm.Error = template.HTML(msg)
		templates.Render(w, r, "profile/show", vm)
	}

	if !authutil.CheckPassword(currentPassword, user.PasswordHash) {
		renderError("Current password is incorrect.")
		return
	}

	if err := authutil.ValidatePassword(newPassword); err != nil {
		renderError(err.Error())
		return
	}

	if newPassword != confirmPassword {
		renderError("New passwords do not match.")
		return
	}

	if authutil.CheckPassword(newPassword, user.PasswordHash) {
		renderError("New password cannot be the same as your current password.")
		return
	}

	hash, err := authutil.HashPassword(newPassword)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.userStore.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		h.errLog.Log(r, "failed to update password", err)
		renderError("Failed to update password.")
		return
	}

	http.Redirect(w, r, "/profile?success=password", http.StatusSeeOther)
}

// parseLocation validates the latitude/longitude form fields. Both must be
// provided together; empty fields clear the stored location. Returns the
// parsed point (nil when clearing) or a user-facing error message.
func parseLocation(latStr, lngStr string) (*models.GeoPoint, string) {
	if latStr == "" && lngStr == "" {
		return nil, ""
	}
	if latStr == "" || lngStr == "" {
		return nil, "Latitude and longitude must be provided together."
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, "Latitude must be a number between -90 and 90."
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, "Longitude must be a number between -180 and 180."
	}

	point := models.NewGeoPoint(lat, lng)
	if err := point.Validate(); err != nil {
		if lat < -90 || lat > 90 {
			return nil, "Latitude must be a number between -90 and 90."
		}
		return nil, "Longitude must be a number between -180 and 180."
	}
	return point, ""
}

// buildProfileVM creates the profile view model.
func buildProfileVM(r *http.Request, user *models.User, profile *models.Profile) ProfileVM {
	vm := ProfileVM{
		BaseVM:        viewdata.New(r),
		Subject:       user.Username,
		ViewingSelf:   true,
		FullName:      user.FullName(),
		Email:         user.Email,
		RoleLabel:     formatRole(user.Role),
		HomeAddress:   profile.HomeAddress,
		PhoneNumber:   profile.PhoneNumber,
		PasswordRules: authutil.PasswordRules(),
	}
	vm.Title = "Profile"

	if profile.HasLocation() {
		vm.HasLocation = true
		vm.Latitude = profile.Location.Lat()
		vm.Longitude = profile.Location.Lng()
	}

	return vm
}

// formatRole returns a human-readable label for the role.
func formatRole(role string) string {
	switch role {
	case models.RoleSuperuser:
		return "Superuser"
	case models.RoleStaff:
		return "Staff"
	default:
		return role
	}
}
