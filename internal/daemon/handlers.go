package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/client"
	"github.com/felixgeelhaar/codequest/internal/domain"
)

// maxBodyBytes caps request bodies; submissions and filter states are tiny
const maxBodyBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	version, err := s.db.Version()
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "read schema version", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        Version,
		"schema_version": version,
		"filter_store":   s.cfg.Filters.Store,
		"events":         s.consumer != nil,
	})
}

// User handlers

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := s.progress.User(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleUserTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	tasks, err := s.progress.TasksForUser(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, tasks)
}

func (s *Server) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.jsonError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = n
	}
	entries, err := s.activity.ListActivity(r.Context(), userID, limit)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

// Task handlers

func (s *Server) handleTaskDetail(w http.ResponseWriter, r *http.Request) {
	taskID, ok := s.pathID(w, r, "taskId")
	if !ok {
		return
	}
	userID, ok := s.pathID(w, r, "userId")
	if !ok {
		return
	}
	task, err := s.progress.TaskDetail(r.Context(), taskID, userID)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if task == nil {
		s.jsonError(w, http.StatusNotFound, domain.ErrTaskNotFound.Error(), nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

// SubmitAnswerRequest is the body of POST /v1/tasks/submit-answer
type SubmitAnswerRequest struct {
	TaskID     int64  `json:"taskId"`
	QuestionID int64  `json:"questionId"`
	Answer     string `json:"answer"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.headerUser(w, r)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.TaskID <= 0 || req.QuestionID <= 0 {
		s.jsonError(w, http.StatusBadRequest, "taskId and questionId are required", nil)
		return
	}

	res, err := s.progress.SubmitAnswer(r.Context(), userID, req.TaskID, req.QuestionID, req.Answer)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleRecommended(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.headerUser(w, r)
	if !ok {
		return
	}
	tasks, err := s.progress.RecommendedTasks(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, tasks)
}

// Filter handlers

// handleGetFilters always answers with a usable state; absent or corrupt
// data yields the defaults.
func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	st, err := s.filters.Get(r.Context(), userID)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		slog.Warn("filter state unreadable, serving defaults", "user_id", userID, "error", err)
		st = catalog.DefaultFilterState()
	}
	s.jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "read request body", err)
		return
	}
	var st catalog.FilterState
	if err := json.Unmarshal(body, &st); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid filter state", err)
		return
	}
	if err := s.filters.Set(r.Context(), userID, st); err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, st)
}

func (s *Server) handleDeleteFilters(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.filters.Clear(r.Context(), userID); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Request helpers

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		s.jsonError(w, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

func (s *Server) headerUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(client.UserHeader)
	if raw == "" {
		s.jsonError(w, http.StatusBadRequest, client.UserHeader+" header is required", nil)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.jsonError(w, http.StatusBadRequest, "invalid "+client.UserHeader, err)
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
