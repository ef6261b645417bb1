// Package client talks to a CodeQuest backend over REST. It implements
// the task, judge, recommendation and filter persistence contracts used
// by the catalog and quiz packages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
)

// UserHeader carries the acting user's ID
const UserHeader = "X-User-ID"

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known responses onto domain sentinels
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusConflict,
		strings.Contains(strings.ToLower(e.Message), domain.ErrTaskAlreadyCompleted.Error()):
		return domain.ErrTaskAlreadyCompleted
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return domain.ErrInvalidInput
	case e.StatusCode >= 500:
		return domain.ErrUnavailable
	}
	return nil
}

// Config holds client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Resilience configures retry and circuit breaking. Nil disables both.
	Resilience *ResilienceConfig
}

// Client is a CodeQuest REST client
type Client struct {
	baseURL    string
	httpClient *http.Client
	guard      *guard
}

// New creates a client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
	if cfg.Resilience != nil {
		c.guard = newGuard(*cfg.Resilience)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Health checks the backend is reachable
func (c *Client) Health(ctx context.Context) error {
	_, err := c.read(ctx, "/v1/health", 0)
	return err
}

// User fetches a user profile
func (c *Client) User(ctx context.Context, userID int64) (*domain.User, error) {
	body, err := c.read(ctx, "/v1/users/"+id(userID), userID)
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// TasksForUser fetches every task with userID's progress attached
func (c *Client) TasksForUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	body, err := c.read(ctx, "/v1/users/"+id(userID)+"/tasks", userID)
	if err != nil {
		return nil, err
	}
	return decodeTasks(body)
}

// TaskDetail fetches one task scoped to userID. A missing task returns nil.
func (c *Client) TaskDetail(ctx context.Context, taskID, userID int64) (*domain.Task, error) {
	body, err := c.read(ctx, "/v1/tasks/"+id(taskID)+"/tasks/"+id(userID), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, nil
	}
	var t domain.Task
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

type submitRequest struct {
	TaskID     int64  `json:"taskId"`
	QuestionID int64  `json:"questionId"`
	Answer     string `json:"answer"`
}

// SubmitAnswer sends an answer for judging. Submissions are never
// retried since the backend records every attempt.
func (c *Client) SubmitAnswer(ctx context.Context, userID, taskID, questionID int64, answer string) (domain.SubmitResult, error) {
	payload, err := json.Marshal(submitRequest{TaskID: taskID, QuestionID: questionID, Answer: answer})
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.write(ctx, http.MethodPost, "/v1/tasks/submit-answer", userID, payload)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	var res domain.SubmitResult
	if err := json.Unmarshal(body, &res); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("decode submit result: %w", err)
	}
	return res, nil
}

// RecommendedTasks fetches the backend's ranking for userID
func (c *Client) RecommendedTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	body, err := c.read(ctx, "/v1/tasks/recommended", userID)
	if err != nil {
		return nil, err
	}
	return decodeTasks(body)
}

// Activity fetches userID's most recent activity entries, newest first.
// A limit of zero lets the backend pick.
func (c *Client) Activity(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	path := "/v1/users/" + id(userID) + "/activity"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	body, err := c.read(ctx, path, userID)
	if err != nil {
		return nil, err
	}
	var entries []domain.Activity
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return entries, nil
}

// Status describes the backend's storage and event configuration
type Status struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	SchemaVersion int    `json:"schema_version"`
	FilterStore   string `json:"filter_store"`
	Events        bool   `json:"events"`
}

// Status fetches the backend status
func (c *Client) Status(ctx context.Context) (*Status, error) {
	body, err := c.read(ctx, "/v1/status", 0)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// GetFilterState fetches userID's saved filters
func (c *Client) GetFilterState(ctx context.Context, userID int64) (catalog.FilterState, error) {
	body, err := c.read(ctx, filtersPath(userID), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return catalog.DefaultFilterState(), catalog.ErrNotFound
		}
		return catalog.DefaultFilterState(), err
	}
	return catalog.DecodeFilterState(body)
}

// SetFilterState saves userID's filters
func (c *Client) SetFilterState(ctx context.Context, userID int64, st catalog.FilterState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal filter state: %w", err)
	}
	_, err = c.write(ctx, http.MethodPut, filtersPath(userID), userID, payload)
	return err
}

// ClearFilterState deletes userID's filters
func (c *Client) ClearFilterState(ctx context.Context, userID int64) error {
	_, err := c.write(ctx, http.MethodDelete, filtersPath(userID), userID, nil)
	return err
}

// FilterStore adapts the client to catalog.Store
func (c *Client) FilterStore() catalog.Store {
	return filterStore{c: c}
}

type filterStore struct{ c *Client }

func (s filterStore) Get(ctx context.Context, userID int64) (catalog.FilterState, error) {
	return s.c.GetFilterState(ctx, userID)
}

func (s filterStore) Set(ctx context.Context, userID int64, st catalog.FilterState) error {
	return s.c.SetFilterState(ctx, userID, st)
}

func (s filterStore) Clear(ctx context.Context, userID int64) error {
	return s.c.ClearFilterState(ctx, userID)
}

// read performs an idempotent GET, retried when resilience is enabled
func (c *Client) read(ctx context.Context, path string, userID int64) ([]byte, error) {
	op := func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, path, userID, nil)
	}
	if c.guard != nil {
		return c.guard.read(ctx, op)
	}
	return op(ctx)
}

// write performs a mutating request, guarded by the circuit breaker only
func (c *Client) write(ctx context.Context, method, path string, userID int64, payload []byte) ([]byte, error) {
	op := func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, method, path, userID, payload)
	}
	if c.guard != nil {
		return c.guard.write(ctx, op)
	}
	return op(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, userID int64, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set(UserHeader, id(userID))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	slog.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode)
	return data, nil
}

// errorMessage extracts {"error": "..."} or falls back to the raw body
func errorMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

func decodeTasks(body []byte) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func filtersPath(userID int64) string {
	return "/v1/users/" + id(userID) + "/filters"
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Close releases resources held by the client
func (c *Client) Close() error {
	if c.guard != nil {
		return c.guard.Close()
	}
	return nil
}
