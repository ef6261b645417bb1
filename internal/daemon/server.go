package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/config"
	"github.com/felixgeelhaar/codequest/internal/progress"
	"github.com/felixgeelhaar/codequest/internal/queue"
	"github.com/felixgeelhaar/codequest/internal/storage/postgres"
	"github.com/felixgeelhaar/codequest/internal/storage/redis"
	"github.com/felixgeelhaar/codequest/internal/storage/sqlite"
	"github.com/felixgeelhaar/codequest/internal/taskpack"
)

// Version is reported by /v1/status
const Version = "0.1.0"

// Server represents the CodeQuest daemon HTTP server
type Server struct {
	cfg    *config.LocalConfig
	server *http.Server
	router *http.ServeMux

	db       *sqlite.DB
	tasks    *sqlite.TaskStore
	activity *sqlite.ActivityStore
	progress *progress.Service
	filters  catalog.Store

	// set when events are published through RabbitMQ
	conn     *queue.Connection
	consumer *queue.Consumer

	closers []func() error
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config *config.LocalConfig
	// DataDir holds the database and file filter store. Defaults to ~/.codequest.
	DataDir string
	// Packs overrides the builtin task packs. Mostly for tests.
	Packs fs.FS
}

// NewServer creates a new daemon server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		cfg:    cfg.Config,
		router: http.NewServeMux(),
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dir, err := config.EnsureDir()
		if err != nil {
			return nil, fmt.Errorf("get codequest dir: %w", err)
		}
		dataDir = dir
	}

	dbPath := cfg.Config.DatabasePath(dataDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.db = db
	s.closers = append(s.closers, db.Close)

	if err := db.Migrate(); err != nil {
		s.close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	s.tasks = sqlite.NewTaskStore(db)
	s.activity = sqlite.NewActivityStore(db)

	if err := s.seed(ctx, cfg.Packs); err != nil {
		s.close()
		return nil, err
	}

	filters, err := s.openFilterStore(ctx, dataDir)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open filter store: %w", err)
	}
	s.filters = filters

	s.progress = progress.NewService(s.tasks, s.setupEvents(ctx))

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	handler := recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// seed loads the builtin packs plus any configured tasks_path packs
func (s *Server) seed(ctx context.Context, packsFS fs.FS) error {
	if packsFS == nil {
		packsFS = taskpack.Builtin()
	}
	packs, err := taskpack.NewLoader(packsFS).LoadAll()
	if err != nil {
		return fmt.Errorf("load task packs: %w", err)
	}

	if path := s.cfg.Daemon.TasksPath; path != "" {
		extra, err := taskpack.NewLoader(os.DirFS(path)).LoadAll()
		if err != nil {
			return fmt.Errorf("load task packs from %s: %w", path, err)
		}
		packs = append(packs, extra...)
	}

	res, err := taskpack.Seed(ctx, s.tasks, packs, s.cfg.Daemon.SeedUsers)
	if err != nil {
		return fmt.Errorf("seed tasks: %w", err)
	}
	slog.Info("task packs loaded", "packs", len(packs), "new_tasks", res.Tasks, "new_users", res.Users)
	return nil
}

// openFilterStore builds the configured catalog.Store
func (s *Server) openFilterStore(ctx context.Context, dataDir string) (catalog.Store, error) {
	fc := s.cfg.Filters
	switch fc.Store {
	case config.FilterStoreMemory:
		return catalog.NewMemoryStore(), nil
	case config.FilterStoreFile:
		return catalog.NewFileStore(filepath.Join(dataDir, "filters"))
	case config.FilterStoreSQLite:
		return sqlite.NewFilterStore(s.db), nil
	case config.FilterStoreRedis:
		store, err := redis.NewFilterStore(ctx, redis.Config{
			Addr:     fc.RedisAddr,
			Password: fc.RedisPassword,
			DB:       fc.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	case config.FilterStorePostgres:
		store, err := postgres.NewFilterStore(ctx, postgres.Config{DSN: fc.PostgresDSN})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown filter store %q", fc.Store)
	}
}

// setupEvents returns the progress publisher. With events enabled, events
// go to RabbitMQ and a consumer records them into the activity log;
// otherwise the activity store is the publisher. A broker that cannot be
// reached falls back to the activity store.
func (s *Server) setupEvents(ctx context.Context) progress.Publisher {
	if !s.cfg.Events.Enabled {
		return s.activity
	}

	conn, err := queue.NewConnection(s.cfg.Events.RabbitMQURL)
	if err != nil {
		slog.Warn("rabbitmq unavailable, recording activity directly", "error", err)
		return s.activity
	}

	consumer := queue.NewConsumer(conn, s.activity.Record, queue.DefaultConsumerConfig())
	if err := consumer.Start(ctx); err != nil {
		slog.Warn("activity consumer failed to start, recording activity directly", "error", err)
		conn.Close()
		return s.activity
	}

	s.conn = conn
	s.consumer = consumer
	return queue.NewProducer(conn)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Users
	s.router.HandleFunc("GET /v1/users/{id}", s.handleGetUser)
	s.router.HandleFunc("GET /v1/users/{id}/tasks", s.handleUserTasks)
	s.router.HandleFunc("GET /v1/users/{id}/activity", s.handleUserActivity)

	// Tasks
	s.router.HandleFunc("GET /v1/tasks/recommended", s.handleRecommended)
	s.router.HandleFunc("GET /v1/tasks/{taskId}/tasks/{userId}", s.handleTaskDetail)
	s.router.HandleFunc("POST /v1/tasks/submit-answer", s.handleSubmitAnswer)

	// Filters
	s.router.HandleFunc("GET /v1/users/{id}/filters", s.handleGetFilters)
	s.router.HandleFunc("PUT /v1/users/{id}/filters", s.handlePutFilters)
	s.router.HandleFunc("DELETE /v1/users/{id}/filters", s.handleDeleteFilters)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting codequest daemon",
		"addr", s.server.Addr,
		"filter_store", s.cfg.Filters.Store,
		"events", s.consumer != nil,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	s.close()
	return err
}

// close releases the consumer, broker connection and stores
func (s *Server) close() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			slog.Warn("failed to close rabbitmq connection", "error", err)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
	s.closers = nil
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// storeError maps a store or service error onto a response
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.Error("request failed",
			"correlation_id", GetCorrelationID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		s.jsonError(w, status, "internal error", err)
		return
	}
	s.jsonError(w, status, rootMessage(err), nil)
}

// rootMessage returns the innermost error text so clients can match on it
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
