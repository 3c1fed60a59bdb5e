// internal/app/features/activity/export.go
package activity

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stratafolio/internal/app/store/activitylog"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"go.uber.org/zap"
)

const exportLimit = 10000

// exportCSV streams the filtered activity log as a CSV download.
// Superuser only; mounted behind the role middleware in Routes.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	startDate, endDate := parseDateRange(r)

	action := strings.TrimSpace(r.URL.Query().Get("action"))
	if !models.IsValidAction(action) {
		action = ""
	}

	entries, err := h.activityStore.Query(r.Context(), activitylog.QueryFilter{
		Action:    action,
		Username:  strings.TrimSpace(r.URL.Query().Get("username")),
		StartTime: &startDate,
		EndTime:   &endDate,
		Limit:     exportLimit,
	})
	if err != nil {
		h.errLog.Log(r, "failed to query activity entries for export", err)
		http.Error(w, "A database error occurred", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("activity_%s_%s.csv", startDate.Format("20060102"), endDate.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM for Excel
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		h.logger.Error("CSV write failed (BOM)", zap.Error(err))
		return
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	if err := cw.Write([]string{"timestamp", "action", "user_id", "username", "ip", "user_agent", "session_key"}); err != nil {
		h.logger.Error("CSV write failed (header)", zap.Error(err))
		return
	}

	for _, e := range entries {
		userID := ""
		if e.UserID != nil {
			userID = e.UserID.Hex()
		}
		if err := cw.Write([]string{
			e.CreatedAt.Format(time.RFC3339),
			e.Action,
			userID,
			sanitizeCSVField(e.Username),
			e.IP,
			sanitizeCSVField(e.UserAgent),
			e.SessionKey,
		}); err != nil {
			h.logger.Error("CSV write failed (row)", zap.Error(err))
			return
		}
	}

	h.logger.Info("activity CSV exported", zap.Int("rows", len(entries)))
}

// parseDateRange reads start/end query params, defaulting to the last
// 30 days. The end date is inclusive.
func parseDateRange(r *http.Request) (time.Time, time.Time) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -30)

	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			startDate = t
		}
	}
	if e := r.URL.Query().Get("end"); e != "" {
		if t, err := time.Parse("2006-01-02", e); err == nil {
			endDate = t.Add(24*time.Hour - time.Second)
		}
	}

	return startDate, endDate
}

// sanitizeCSVField guards against spreadsheet formula injection.
func sanitizeCSVField(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
