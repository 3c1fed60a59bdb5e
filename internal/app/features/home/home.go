// internal/app/features/home/home.go
package home

import (
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides home page handlers.
type Handler struct {
	userStore    *userstore.Store
	profileStore *profiles.Store
	logger       *zap.Logger
}

// NewHandler creates a new home Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:    userstore.New(db),
		profileStore: profiles.New(db),
		logger:       logger,
	}
}

// HomeVM is the view model for the home page.
type HomeVM struct {
	viewdata.BaseVM
	MemberCount int64
	MappedCount int64
}

// Routes returns a chi.Router with home routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	return r
}

// Index renders the home page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	vm := HomeVM{
		BaseVM: viewdata.New(r),
	}
	vm.Title = "Home"

	if vm.IsLoggedIn {
		memberCount, err := h.userStore.Count(r.Context(), bson.M{})
		if err != nil {
			h.logger.Warn("failed to count users for home page", zap.Error(err))
		} else {
			vm.MemberCount = memberCount
		}

		mappedCount, err := h.profileStore.Count(r.Context(), bson.M{
			"location": bson.M{"$exists": true, "$ne": nil},
		})
		if err != nil {
			h.logger.Warn("failed to count mapped profiles for home page", zap.Error(err))
		} else {
			vm.MappedCount = mappedCount
		}
	}

	templates.Render(w, r, "home/index", vm)
}
