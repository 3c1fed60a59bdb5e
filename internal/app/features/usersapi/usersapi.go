// internal/app/features/usersapi/usersapi.go
package usersapi

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	"github.com/dalemusser/stratafolio/internal/app/features/profileapi"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authz"
	"github.com/dalemusser/stratafolio/internal/app/system/jsonutil"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Handler provides the read-only JSON user API.
type Handler struct {
	userStore    *userstore.Store
	profileStore *profiles.Store
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new usersapi Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:    userstore.New(db),
		profileStore: profiles.New(db),
		errLog:       errLog,
		logger:       logger,
	}
}

// UserRecord is the JSON shape of a user with their nested profile.
// Everything here is read only; writes go through the admin console or
// the profile API.
type UserRecord struct {
	ID         string                    `json:"id"`
	Username   string                    `json:"username"`
	Email      string                    `json:"email"`
	FirstName  string                    `json:"first_name"`
	LastName   string                    `json:"last_name"`
	Role       string                    `json:"role"`
	DateJoined time.Time                 `json:"date_joined"`
	Profile    *profileapi.ProfileRecord `json:"profile"`
}

// NewUserRecord flattens a user and their profile into the JSON record.
func NewUserRecord(u models.User, p *models.Profile) UserRecord {
	rec := UserRecord{
		ID:         u.ID.Hex(),
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		DateJoined: u.CreatedAt,
	}
	if p != nil {
		pr := profileapi.NewProfileRecord(*p, &u)
		rec.Profile = &pr
	}
	return rec
}

// Routes returns a chi.Router with the user API mounted. The API is
// read only; any write method gets a 405 with an Allow header.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedInJSON)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/", h.list)
	r.Get("/{id}", h.detail)

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	jsonutil.Error(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
}

// list returns the users visible to the requester, oldest first.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, ok := authz.UserScope(r)
	if !ok {
		jsonutil.Forbidden(w, "Authentication credentials were not provided.")
		return
	}

	users, err := h.userStore.Find(r.Context(), filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		h.errLog.Log(r, "failed to list users", err)
		jsonutil.InternalError(w, "failed to list users")
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}
	byUser, err := h.profileStore.GetByUserIDs(r.Context(), userIDs)
	if err != nil {
		h.errLog.Log(r, "failed to load profiles", err)
		jsonutil.InternalError(w, "failed to list users")
		return
	}

	records := make([]UserRecord, 0, len(users))
	for _, u := range users {
		var profile *models.Profile
		if p, ok := byUser[u.ID]; ok {
			profile = &p
		}
		records = append(records, NewUserRecord(u, profile))
	}

	jsonutil.OK(w, records)
}

// detail returns one user. Out-of-scope records read as missing.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.NotFound(w, "user not found")
		return
	}

	if !authz.CanAccessUser(r, id) {
		jsonutil.NotFound(w, "user not found")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			jsonutil.NotFound(w, "user not found")
			return
		}
		h.errLog.Log(r, "failed to load user", err)
		jsonutil.InternalError(w, "failed to load user")
		return
	}

	profile, err := h.profileStore.GetByUserID(r.Context(), user.ID)
	if err != nil && err != mongo.ErrNoDocuments {
		h.errLog.Log(r, "failed to load profile", err)
		jsonutil.InternalError(w, "failed to load user")
		return
	}

	jsonutil.OK(w, NewUserRecord(*user, profile))
}
