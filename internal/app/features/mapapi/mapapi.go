// internal/app/features/mapapi/mapapi.go
package mapapi

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"net/http"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authz"
	"github.com/dalemusser/stratafolio/internal/app/system/jsonutil"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves member locations as GeoJSON for the map page.
type Handler struct {
	userStore    *userstore.Store
	profileStore *profiles.Store
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new mapapi Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:    userstore.New(db),
		profileStore: profiles.New(db),
		errLog:       errLog,
		logger:       logger,
	}
}

// Feature is a single GeoJSON Point feature.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   *models.GeoPoint  `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// FeatureProperties carries the popup fields for a map marker.
type FeatureProperties struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	HomeAddress string `json:"home_address"`
}

// FeatureCollection is the GeoJSON envelope the map consumes.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Routes returns a chi.Router with the locations endpoint mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedInJSON)

	r.Get("/locations", h.locations)

	return r
}

// locations returns the mapped profiles visible to the requester as a
// GeoJSON FeatureCollection. A user_id query parameter narrows the set;
// malformed or out-of-scope values fall back to the full scoped set.
func (h *Handler) locations(w http.ResponseWriter, r *http.Request) {
	role, _, requesterID, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Forbidden(w, "Authentication credentials were not provided.")
		return
	}

	// nil means every user; staff are pinned to themselves.
	var scope []primitive.ObjectID
	if role != "superuser" {
		scope = []primitive.ObjectID{requesterID}
	}

	if raw := query.Get(r, "user_id"); raw != "" {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			if role == "superuser" || id == requesterID {
				scope = []primitive.ObjectID{id}
			}
		}
	}

	list, err := h.profileStore.ListWithLocations(r.Context(), scope)
	if err != nil {
		h.errLog.Log(r, "failed to list locations", err)
		jsonutil.InternalError(w, "failed to list locations")
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(list))
	for _, p := range list {
		userIDs = append(userIDs, p.UserID)
	}
	users, err := h.userStore.GetByIDs(r.Context(), userIDs)
	if err != nil {
		h.errLog.Log(r, "failed to load mapped users", err)
		jsonutil.InternalError(w, "failed to list locations")
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(list))}
	for _, p := range list {
		if !p.HasLocation() {
			continue
		}
		props := FeatureProperties{
			UserID:      p.UserID.Hex(),
			PhoneNumber: p.PhoneNumber,
			HomeAddress: p.HomeAddress,
		}
		if u, ok := byID[p.UserID]; ok {
			props.Username = u.Username
			props.FullName = u.FullName()
			props.Email = u.Email
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   p.Location,
			Properties: props,
		})
	}

	jsonutil.OK(w, fc)
}
