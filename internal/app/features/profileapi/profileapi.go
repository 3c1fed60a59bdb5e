// internal/app/features/profileapi/profileapi.go
package profileapi

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/accountevents"
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

// Handler provides the JSON profile API.
type Handler struct {
	userStore    *userstore.Store
	profileStore *profiles.Store
	errLog       *errorsfeature.ErrorLogger
	events       *accountevents.Hooks
	logger       *zap.Logger
}

// NewHandler creates a new profileapi Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, events *accountevents.Hooks, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:    userstore.New(db),
		profileStore: profiles.New(db),
		errLog:       errLog,
		events:       events,
		logger:       logger,
	}
}

// Routes returns a chi.Router with the profile API mounted. Every route
// requires a signed-in session; anonymous callers get a 403 JSON body.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedInJSON)

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.detail)
	r.Put("/{id}", h.update)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)

	return r
}

// list returns the profiles visible to the requester, oldest first.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, ok := authz.ProfileScope(r)
	if !ok {
		jsonutil.Forbidden(w, "Authentication credentials were not provided.")
		return
	}

	list, err := h.profileStore.Find(r.Context(), filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		h.errLog.Log(r, "failed to list profiles", err)
		jsonutil.InternalError(w, "failed to list profiles")
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(list))
	for _, p := range list {
		userIDs = append(userIDs, p.UserID)
	}
	users, err := h.userStore.GetByIDs(r.Context(), userIDs)
	if err != nil {
		h.errLog.Log(r, "failed to load profile users", err)
		jsonutil.InternalError(w, "failed to list profiles")
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	records := make([]ProfileRecord, 0, len(list))
	for _, p := range list {
		var user *models.User
		if u, ok := byID[p.UserID]; ok {
			user = &u
		}
		records = append(records, NewProfileRecord(p, user))
	}

	jsonutil.OK(w, records)
}

// detail returns one profile. Records outside the requester's scope are
// reported as missing, not forbidden, so profile IDs cannot be probed.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	user, err := h.userStore.GetByID(r.Context(), p.UserID)
	if err != nil && err != mongo.ErrNoDocuments {
		h.errLog.Log(r, "failed to load profile user", err)
		jsonutil.InternalError(w, "failed to load profile")
		return
	}

	jsonutil.OK(w, NewProfileRecord(*p, user))
}

// create inserts a profile for an existing user. Superuser only; the
// normal path for profile creation is the account event hooks, so this
// mostly serves repair of older accounts.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if !authz.IsSuperuser(r) {
		jsonutil.Forbidden(w, "You do not have permission to perform this action.")
		return
	}

	var input ProfileInput
	if err := jsonutil.Decode(r, &input); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	userID, err := primitive.ObjectIDFromHex(input.UserID)
	if err != nil {
		jsonutil.ValidationError(w, map[string]string{"user_id": "must be a valid user id"})
		return
	}
	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			jsonutil.ValidationError(w, map[string]string{"user_id": "user not found"})
			return
		}
		h.errLog.Log(r, "failed to load user", err)
		jsonutil.InternalError(w, "failed to create profile")
		return
	}

	point, _, err := input.ResolveLocation()
	if err != nil {
		jsonutil.ValidationError(w, map[string]string{"location": err.Error()})
		return
	}

	p := models.Profile{UserID: user.ID, Location: point}
	if input.HomeAddress != nil {
		p.HomeAddress = *input.HomeAddress
	}
	if input.PhoneNumber != nil {
		p.PhoneNumber = *input.PhoneNumber
	}

	created, err := h.profileStore.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, profiles.ErrDuplicateProfile) {
			jsonutil.ValidationError(w, map[string]string{"user_id": "a profile for this user already exists"})
			return
		}
		h.errLog.Log(r, "failed to create profile", err)
		jsonutil.InternalError(w, "failed to create profile")
		return
	}

	jsonutil.Created(w, NewProfileRecord(created, user))
}

// update applies a partial update to a profile in the requester's scope.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	var input ProfileInput
	if err := jsonutil.Decode(r, &input); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	point, setLocation, err := input.ResolveLocation()
	if err != nil {
		jsonutil.ValidationError(w, map[string]string{"location": err.Error()})
		return
	}

	if err := h.profileStore.UpdateByUserID(r.Context(), p.UserID, profiles.UpdateInput{
		HomeAddress: input.HomeAddress,
		PhoneNumber: input.PhoneNumber,
		Location:    point,
		SetLocation: setLocation,
	}); err != nil {
		h.errLog.Log(r, "failed to update profile", err)
		jsonutil.InternalError(w, "failed to update profile")
		return
	}

	h.events.UserUpdated(r.Context(), p.UserID)

	updated, err := h.profileStore.GetByID(r.Context(), p.ID)
	if err != nil {
		h.errLog.Log(r, "failed to reload profile", err)
		jsonutil.InternalError(w, "failed to update profile")
		return
	}
	user, err := h.userStore.GetByID(r.Context(), p.UserID)
	if err != nil && err != mongo.ErrNoDocuments {
		h.errLog.Log(r, "failed to load profile user", err)
		jsonutil.InternalError(w, "failed to update profile")
		return
	}

	jsonutil.OK(w, NewProfileRecord(*updated, user))
}

// remove deletes a profile. Scope is checked before capability so staff
// get a 404 for records they cannot see and a 403 only for their own.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if !authz.IsSuperuser(r) {
		jsonutil.Forbidden(w, "You do not have permission to perform this action.")
		return
	}

	if _, err := h.profileStore.DeleteByUserID(r.Context(), p.UserID); err != nil {
		h.errLog.Log(r, "failed to delete profile", err)
		jsonutil.InternalError(w, "failed to delete profile")
		return
	}

	jsonutil.NoContent(w)
}

// loadScoped fetches the profile named in the URL and hides records
// outside the requester's scope behind a 404. A false return means the
// response has already been written.
func (h *Handler) loadScoped(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.NotFound(w, "profile not found")
		return nil, false
	}

	p, err := h.profileStore.GetByID(r.Context(), id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			jsonutil.NotFound(w, "profile not found")
			return nil, false
		}
		h.errLog.Log(r, "failed to load profile", err)
		jsonutil.InternalError(w, "failed to load profile")
		return nil, false
	}

	if !authz.CanAccessUser(r, p.UserID) {
		jsonutil.NotFound(w, "profile not found")
		return nil, false
	}

	return p, true
}
