// internal/app/features/activity/activity.go
package activity

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	"github.com/dalemusser/stratafolio/internal/app/store/activitylog"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authz"
	"github.com/dalemusser/stratafolio/internal/app/system/viewdata"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const pageSize = 50

// Handler provides the activity log browser.
type Handler struct {
	activityStore *activitylog.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new activity Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		activityStore: activitylog.New(db),
		errLog:        errLog,
		logger:        logger,
	}
}

// entryRow is one activity log line.
type entryRow struct {
	Action    string
	Username  string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// ListVM is the view model for the activity log page.
type ListVM struct {
	viewdata.BaseVM

	// Filter state. The user filter is superuser only; staff are always
	// pinned to their own rows.
	ActionFilter     string
	UsernameFilter   string
	AvailableActions []string
	CanFilterUsers   bool

	// Pagination
	Page       int
	PrevPage   int
	NextPage   int
	Total      int64
	TotalPages int
	HasPrev    bool
	HasNext    bool

	Rows []entryRow
}

// Routes returns a chi.Router with the activity log routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.list)

	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireRole(models.RoleSuperuser))
		r.Get("/export", h.exportCSV)
	})

	return r
}

// list shows activity entries newest first. Superusers can filter by
// action and username; staff only ever see their own entries.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	action := strings.TrimSpace(q.Get("action"))
	if !models.IsValidAction(action) {
		action = ""
	}
	username := strings.TrimSpace(q.Get("username"))

	page := 1
	if pageStr := q.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	filter := activitylog.QueryFilter{
		Action:   action,
		Username: username,
	}

	isSuper := authz.IsSuperuser(r)
	if !isSuper {
		_, _, userID, ok := authz.UserCtx(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		filter.UserID = &userID
		filter.Username = ""
	}

	total, err := h.activityStore.CountByFilter(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count activity entries", err)
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

	filter.Limit = pageSize
	filter.Offset = int64((page - 1) * pageSize)

	entries, err := h.activityStore.Query(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to query activity entries", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, entryRow{
			Action:    e.Action,
			Username:  e.Username,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		})
	}

	vm := ListVM{
		BaseVM:           viewdata.New(r),
		ActionFilter:     action,
		UsernameFilter:   username,
		AvailableActions: models.AllActions(),
		CanFilterUsers:   isSuper,
		Page:             page,
		PrevPage:         page - 1,
		NextPage:         page + 1,
		Total:            total,
		TotalPages:       totalPages,
		HasPrev:          page > 1,
		HasNext:          page < totalPages,
		Rows:             rows,
	}
	vm.Title = "Activity Log"

	templates.Render(w, r, "activity/list", vm)
}
