// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/system/jsonutil"
	"github.com/dalemusser/stratafolio/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler serves the liveness and readiness probes. The full check
// reports per-service status so a load balancer dashboard can tell a
// dead process from a lost MongoDB connection.
type Handler struct {
	mongoClient *mongo.Client
	logger      *zap.Logger
}

func NewHandler(mongoClient *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		logger:      logger,
	}
}

// Response is the body of the full health check.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns the router mounted at /health: the full check at the
// root plus /ready and /live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes-convention probe paths
// (/ready, /readyz, /livez) directly on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// Check pings every backing service and reports "ok" or "degraded".
// Degraded responses use 503 so probes and humans agree.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:   "ok",
		Services: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
	} else {
		resp.Services["mongodb"] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, code, resp)
}

// Ready reports whether the service can reach MongoDB and should
// receive traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}

	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live reports that the process is up. No dependencies are checked.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
