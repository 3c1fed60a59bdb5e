// internal/app/features/mapview/mapview.go
package mapview

import (
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	"github.com/dalemusser/stratafolio/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the member map page.
type Handler struct {
	profileStore *profiles.Store
	logger       *zap.Logger
}

// NewHandler creates a new mapview Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		profileStore: profiles.New(db),
		logger:       logger,
	}
}

// MapVM is the view model for the map page.
type MapVM struct {
	viewdata.BaseVM

	MappedCount int64
	Endpoint    string
}

// Routes returns a chi.Router with map routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.showMap)

	return r
}

// showMap renders the member map. Marker data is loaded client side
// from the GeoJSON endpoint.
func (h *Handler) showMap(w http.ResponseWriter, r *http.Request) {
	vm := MapVM{
		BaseVM:   viewdata.NewBaseVM(r, "Member Map", "/"),
		Endpoint: "/map/api/locations",
	}

	count, err := h.profileStore.Count(r.Context(), bson.M{"location": bson.M{"$exists": true, "$ne": nil}})
	if err != nil {
		h.logger.Warn("failed to count mapped profiles", zap.Error(err))
	} else {
		vm.MappedCount = count
	}

	templates.Render(w, r, "mapview/index", vm)
}
