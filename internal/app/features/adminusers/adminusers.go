// internal/app/features/adminusers/adminusers.go
package adminusers

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/accountevents"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authutil"
	"github.com/dalemusser/stratafolio/internal/app/system/normalize"
	"github.com/dalemusser/stratafolio/internal/app/system/status"
	"github.com/dalemusser/stratafolio/internal/app/system/viewdata"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const pageSize = 20

// Handler provides the superuser console for managing accounts.
type Handler struct {
	userStore *userstore.Store
	errLog    *errorsfeature.ErrorLogger
	events    *accountevents.Hooks
	logger    *zap.Logger
}

// NewHandler creates a new adminusers Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, events *accountevents.Hooks, logger *zap.Logger) *Handler {
	return &Handler{
		userStore: userstore.New(db),
		errLog:    errLog,
		events:    events,
		logger:    logger,
	}
}

// userRow represents a user in the list.
type userRow struct {
	ID       primitive.ObjectID
	Username string
	FullName string
	Email    string
	Role     string
	Status   string
}

// ListVM is the view model for the users list.
type ListVM struct {
	viewdata.BaseVM

	// Filter state
	SearchQuery    string
	Status         string   // "", active, disabled
	RoleFilter     string   // renamed to avoid shadowing BaseVM.Role
	AvailableRoles []string // for dropdown

	// Pagination
	Page       int
	PrevPage   int
	NextPage   int
	Total      int64
	TotalPages int
	RangeStart int
	RangeEnd   int
	HasPrev    bool
	HasNext    bool

	Rows []userRow

	Flash template.HTML
}

// Routes returns a chi.Router with the admin users routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireRole(models.RoleSuperuser))

	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/disable", h.disable)
	r.Post("/{id}/enable", h.enable)
	r.Post("/{id}/delete", h.delete)

	return r
}

// list displays all users with search, filters, and pagination.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	searchQ := strings.TrimSpace(q.Get("search"))
	statusFilter := normalize.Status(q.Get("status"))
	role := normalize.Role(q.Get("role"))

	page := 1
	if pageStr := q.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	filter := bson.M{}
	if role != "" && models.IsValidRole(role) {
		filter["role"] = role
	}
	if statusFilter == status.Active || statusFilter == status.Disabled {
		filter["status"] = statusFilter
	}

	// Prefix search on the folded username.
	if searchQ != "" {
		qFold := text.Fold(searchQ)
		hiFold := qFold + "￿"
		filter["username_ci"] = bson.M{"$gte": qFold, "$lt": hiFold}
	}

	total, err := h.userStore.Count(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count users", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * pageSize

	findOpts := options.Find().
		SetSort(bson.D{{Key: "username_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(pageSize))

	users, err := h.userStore.Find(r.Context(), filter, findOpts)
	if err != nil {
		h.errLog.Log(r, "failed to list users", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:       u.ID,
			Username: u.Username,
			FullName: u.FullName(),
			Email:    u.Email,
			Role:     normalize.Role(u.Role),
			Status:   normalize.Status(u.Status),
		})
	}

	rangeStart := offset + 1
	rangeEnd := offset + len(rows)
	if total == 0 {
		rangeStart = 0
		rangeEnd = 0
	}

	vm := ListVM{
		BaseVM:         viewdata.New(r),
		SearchQuery:    searchQ,
		Status:         statusFilter,
		RoleFilter:     role,
		AvailableRoles: models.AllRoles(),
		Page:           page,
		PrevPage:       page - 1,
		NextPage:       page + 1,
		Total:          total,
		TotalPages:     totalPages,
		RangeStart:     rangeStart,
		RangeEnd:       rangeEnd,
		HasPrev:        page > 1,
		HasNext:        page < totalPages,
		Rows:           rows,
	}
	vm.Title = "Users"

	templates.Render(w, r, "adminusers/list", vm)
}

// UserFormVM is the view model for the new and edit user forms.
type UserFormVM struct {
	viewdata.BaseVM

	ID             string
	Username       string
	Email          string
	FirstName      string
	LastName       string
	SelectedRole   string
	AvailableRoles []string
	Status         string
	IsSelf         bool
	IsEdit         bool
	PasswordRules  string
	Success        string
	Error          string
}

// showNew displays the new user form.
func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	vm := UserFormVM{
		BaseVM:         viewdata.New(r),
		SelectedRole:   models.RoleStaff,
		AvailableRoles: models.AllRoles(),
		PasswordRules:  authutil.PasswordRules(),
	}
	vm.Title = "New User"
	vm.BackURL = "/admin/users"

	templates.Render(w, r, "adminusers/new", vm)
}

// create creates a new user account and its linked profile.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	role := normalize.Role(r.FormValue("role"))
	if !models.IsValidRole(role) {
		role = models.RoleStaff
	}
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))

	renderError := func(msg string) {
		vm := UserFormVM{
			BaseVM:         viewdata.New(r),
			Username:       r.FormValue("username"),
			Email:          r.FormValue("email"),
			FirstName:      firstName,
			LastName:       lastName,
			SelectedRole:   role,
			AvailableRoles: models.AllRoles(),
			PasswordRules:  authutil.PasswordRules(),
			Error:          msg,
		}
		vm.Title = "New User"
		vm.BackURL = "/admin/users"
		templates.Render(w, r, "adminusers/new", vm)
	}

	creds, err := authutil.ValidateAndResolve(authutil.CredentialInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		renderError(err.Error())
		return
	}

	user := models.User{
		Username:  creds.Username,
		Email:     creds.Email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
		Status:    status.Active,
	}
	if creds.PasswordHash != nil {
		user.PasswordHash = *creds.PasswordHash
	}

	created, err := h.userStore.Create(r.Context(), user)
	if err != nil {
		if err == userstore.ErrDuplicateUsername {
			renderError("That username is already in use.")
			return
		}
		h.errLog.Log(r, "failed to create user", err)
		renderError("Failed to create user.")
		return
	}

	h.events.UserCreated(r.Context(), created.ID)
	h.logger.Info("admin created user",
		zap.String("username", created.Username),
		zap.String("role", created.Role))

	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// showEdit displays the edit user form.
func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), objID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			http.NotFound(w, r)
			return
		}
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	vm := UserFormVM{
		BaseVM:         viewdata.New(r),
		ID:             id,
		Username:       user.Username,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		SelectedRole:   user.Role,
		AvailableRoles: models.AllRoles(),
		Status:         normalize.Status(user.Status),
		IsSelf:         actor.UserID() == objID,
		IsEdit:         true,
		PasswordRules:  authutil.PasswordRules(),
	}
	vm.Title = "Edit " + user.Username
	vm.BackURL = "/admin/users"

	if r.URL.Query().Get("success") == "1" {
		vm.Success = "User updated successfully"
	}
	switch r.URL.Query().Get("error") {
	case "":
	case "cannot_disable_self":
		vm.Error = "You cannot disable your own account"
	case "cannot_delete_self":
		vm.Error = "You cannot delete your own account"
	default:
		vm.Error = "An error occurred"
	}

	templates.Render(w, r, "adminusers/edit", vm)
}

// update updates a user account.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	isSelf := actor.UserID() == objID

	role := normalize.Role(r.FormValue("role"))
	if !models.IsValidRole(role) {
		role = models.RoleStaff
	}
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	statusValue := normalize.Status(r.FormValue("status"))

	renderError := func(msg string) {
		vm := UserFormVM{
			BaseVM:         viewdata.New(r),
			ID:             id,
			Username:       r.FormValue("username"),
			Email:          r.FormValue("email"),
			FirstName:      firstName,
			LastName:       lastName,
			SelectedRole:   role,
			AvailableRoles: models.AllRoles(),
			Status:         statusValue,
			IsSelf:         isSelf,
			IsEdit:         true,
			PasswordRules:  authutil.PasswordRules(),
			Error:          msg,
		}
		vm.Title = "Edit User"
		vm.BackURL = "/admin/users"
		templates.Render(w, r, "adminusers/edit", vm)
	}

	creds, err := authutil.ValidateAndResolve(authutil.CredentialInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		IsEdit:   true,
	})
	if err != nil {
		renderError(err.Error())
		return
	}

	update := userstore.UpdateInput{
		Username:     &creds.Username,
		Email:        &creds.Email,
		FirstName:    &firstName,
		LastName:     &lastName,
		PasswordHash: creds.PasswordHash,
	}
	// Superusers cannot demote or disable themselves.
	if !isSelf {
		update.Role = &role
		if statusValue == status.Active || statusValue == status.Disabled {
			update.Status = &statusValue
		}
	}

	if err := h.userStore.UpdateFromInput(r.Context(), objID, update); err != nil {
		if err == userstore.ErrDuplicateUsername {
			renderError("That username is already in use.")
			return
		}
		h.errLog.Log(r, "failed to update user", err)
		renderError("Failed to update user.")
		return
	}

	h.events.UserUpdated(r.Context(), objID)

	http.Redirect(w, r, "/admin/users/"+id+"/edit?success=1", http.StatusSeeOther)
}

// disable disables a user account. Active sessions lapse on the next
// request since login and session validation check status.
func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, status.Disabled, "cannot_disable_self")
}

// enable re-activates a disabled user account.
func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, status.Active, "")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, newStatus, selfError string) {
	actor, _ := auth.CurrentUser(r)

	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if selfError != "" && actor.UserID() == objID {
		http.Redirect(w, r, "/admin/users/"+id+"/edit?error="+selfError, http.StatusSeeOther)
		return
	}

	if err := h.userStore.UpdateFromInput(r.Context(), objID, userstore.UpdateInput{
		Status: &newStatus,
	}); err != nil {
		h.errLog.Log(r, "failed to change user status", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.events.UserUpdated(r.Context(), objID)
	h.logger.Info("admin changed user status",
		zap.String("user_id", id),
		zap.String("status", newStatus))

	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// delete removes a user and their profile. Activity log rows are kept;
// they carry a username snapshot for exactly this case.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if actor.UserID() == objID {
		http.Redirect(w, r, "/admin/users/"+id+"/edit?error=cannot_delete_self", http.StatusSeeOther)
		return
	}

	if _, err := h.userStore.Delete(r.Context(), objID); err != nil {
		h.errLog.Log(r, "failed to delete user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.events.UserDeleted(r.Context(), objID)
	h.logger.Info("admin deleted user", zap.String("user_id", id))

	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}
