package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LaravelPlus/commander/pkg/types"
)

// CleanupRequest is the body of POST /api/cleanup.
type CleanupRequest struct {
	Days       *int `json:"days,omitempty"`
	FailedOnly bool `json:"failed_only,omitempty"`
}

// commandHistory handles GET /api/{command}/history.
func (s *Server) commandHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	history, err := s.service.History(r.Context(), chi.URLParam(r, "command"), limit)
	if err != nil {
		writeServiceError(w, r, "command history", err)
		return
	}
	writeSuccess(w, history, "Command history loaded successfully")
}

// commandStats handles GET /api/{command}/stats.
func (s *Server) commandStats(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", 0)
	if !ok {
		return
	}
	stats, err := s.service.Stats(r.Context(), chi.URLParam(r, "command"), days)
	if err != nil {
		writeServiceError(w, r, "command stats", err)
		return
	}
	writeSuccess(w, stats, "Command statistics loaded successfully")
}

// dashboard handles GET /api/dashboard.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.DashboardStats(r.Context())
	if err != nil {
		writeServiceError(w, r, "dashboard stats", err)
		return
	}
	writeSuccess(w, stats, "Dashboard statistics loaded successfully")
}

// recentExecutions handles GET /api/recent.
func (s *Server) recentExecutions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	recent, err := s.service.Recent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "recent executions", err)
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

// popularCommands handles GET /api/popular.
func (s *Server) popularCommands(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	popular, err := s.service.Popular(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "popular commands", err)
		return
	}
	writeJSON(w, http.StatusOK, popular)
}

// failedCommands handles GET /api/failed.
func (s *Server) failedCommands(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	failed, err := s.service.Failed(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, "failed commands", err)
		return
	}
	writeJSON(w, http.StatusOK, failed)
}

// executionsByUser handles GET /api/user/{user}.
func (s *Server) executionsByUser(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	records, err := s.service.ByUser(r.Context(), chi.URLParam(r, "user"), limit)
	if err != nil {
		writeServiceError(w, r, "executions by user", err)
		return
	}
	writeSuccess(w, records, "User executions loaded successfully")
}

// activity handles GET /api/activity.
func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	perPage, ok := queryInt(w, r, "per_page", 20)
	if !ok {
		return
	}

	result, err := s.service.Activity(r.Context(), page, perPage, types.ActivityFilter{
		Status:   q.Get("status"),
		Command:  q.Get("command"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	})
	if err != nil {
		writeServiceError(w, r, "activity", err)
		return
	}
	writeSuccess(w, result, "Activity data loaded successfully")
}

// cleanup handles POST /api/cleanup.
func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		deleted int64
		err     error
		message string
	)
	if req.FailedOnly {
		deleted, err = s.service.ClearFailed(r.Context())
		message = fmt.Sprintf("Successfully cleared %d failed records", deleted)
	} else {
		deleted, err = s.service.Cleanup(r.Context(), req.Days)
		message = fmt.Sprintf("Successfully cleaned up %d old records", deleted)
	}
	if err != nil {
		writeServiceError(w, r, "cleanup", err)
		return
	}
	writeSuccess(w, map[string]int64{"deleted_count": deleted}, message)
}

// schedule handles GET /api/schedule.
func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.service.Schedule(), "Schedule loaded successfully")
}

// queryInt parses an optional integer query parameter. On a malformed value
// it writes a 400 and returns false.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("The %s parameter must be an integer", name))
		return 0, false
	}
	return v, true
}
