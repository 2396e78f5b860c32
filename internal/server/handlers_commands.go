package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/pkg/types"
)

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Options   json.RawMessage `json:"options,omitempty"`
}

// RetryRequest is the body of POST /api/retry.
type RetryRequest struct {
	Command string `json:"command"`
}

// disabledMessage is returned with 403 for disabled commands.
const disabledMessage = "This command is disabled and cannot be executed"

// listCommands handles GET /api/list.
func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.ListWithExecutionData(r.Context())
	if err != nil {
		writeServiceError(w, r, "list commands", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// runCommand handles POST /api/run.
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "Command name is required")
		return
	}

	args, err := decodeParams("arguments", req.Arguments)
	if err != nil {
		writeServiceError(w, r, "run command", err)
		return
	}
	opts, err := decodeParams("options", req.Options)
	if err != nil {
		writeServiceError(w, r, "run command", err)
		return
	}

	if !s.preflight(w, r, req.Command) {
		return
	}

	result := s.service.Execute(r.Context(), commander.Request{
		Command:   req.Command,
		Arguments: args,
		Options:   opts,
		User:      getUser(r.Context()),
	})
	writeJSON(w, http.StatusOK, result)
}

// retryCommand handles POST /api/retry.
func (s *Server) retryCommand(w http.ResponseWriter, r *http.Request) {
	var req RetryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "Command name is required")
		return
	}
	if !s.preflight(w, r, req.Command) {
		return
	}

	result, err := s.service.Retry(r.Context(), req.Command, getUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, "retry command", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// preflight rejects commands that may not run here. It reports whether the
// request may proceed.
func (s *Server) preflight(w http.ResponseWriter, r *http.Request, name string) bool {
	err := s.service.Preflight(name)
	if err == nil {
		return true
	}
	var locked *types.CommandLockedError
	if errors.As(err, &locked) {
		writeError(w, http.StatusForbidden, disabledMessage)
		return false
	}
	writeServiceError(w, r, "preflight", err)
	return false
}

// searchCommands handles GET /api/search?query=.
func (s *Server) searchCommands(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	writeSuccess(w, s.service.Search(query), "Commands search completed successfully")
}

// listCategories handles GET /api/categories.
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.service.Categories(), "Categories loaded successfully")
}

// commandsByCategory handles GET /api/category/{category}.
func (s *Server) commandsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	writeSuccess(w, s.service.ByCategory(category), "Commands by category loaded successfully")
}

// decodeBody decodes a JSON body. An empty body decodes to the zero value.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("Invalid request body")
	}
	return nil
}

// decodeParams accepts a JSON object, null or an empty array (as sent by
// clients that serialize empty maps as lists).
func decodeParams(field string, raw json.RawMessage) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil && len(list) == 0 {
		return map[string]any{}, nil
	}
	return nil, types.NewValidationError(field, "The %s field must be an object", field)
}
