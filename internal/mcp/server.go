package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/codequest/internal/appreciation"
	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/quiz"
)

// Backend is what the tools need from the progress backend. Both the REST
// client and the local progress service satisfy it.
type Backend interface {
	User(ctx context.Context, userID int64) (*domain.User, error)
	TasksForUser(ctx context.Context, userID int64) ([]domain.Task, error)
	TaskDetail(ctx context.Context, taskID, userID int64) (*domain.Task, error)
	SubmitAnswer(ctx context.Context, userID, taskID, questionID int64, answer string) (domain.SubmitResult, error)
	RecommendedTasks(ctx context.Context, userID int64) ([]domain.Task, error)
}

// Server wraps the MCP server with CodeQuest functionality
type Server struct {
	mcpServer *server.Server
	backend   Backend
	catalog   *catalog.Service
	filters   catalog.Store
	sessions  *registry
	praise    *appreciation.Service

	userID        int64
	feedbackDelay time.Duration
	clock         quiz.Clock
}

// Config contains configuration for the MCP server
type Config struct {
	Backend Backend
	// Filters persists the tasks tool's filter state. Nil keeps it in memory.
	Filters catalog.Store
	// Recommender ranks the recommended view locally when the backend's
	// ranking is unavailable. Nil uses a jitter-free scorer.
	Recommender   catalog.Recommender
	UserID        int64
	FeedbackDelay time.Duration
	Clock         quiz.Clock
}

// NewServer creates a new MCP server for CodeQuest
func NewServer(cfg Config) *Server {
	filters := cfg.Filters
	if filters == nil {
		filters = catalog.NewMemoryStore()
	}

	s := &Server{
		backend:       cfg.Backend,
		filters:       filters,
		sessions:      newRegistry(),
		praise:        appreciation.NewService(),
		userID:        cfg.UserID,
		feedbackDelay: cfg.FeedbackDelay,
		clock:         cfg.Clock,
	}
	if cfg.Backend != nil {
		s.catalog = catalog.NewService(cfg.Backend, cfg.Backend, catalog.NewPipeline(cfg.Recommender))
	}

	s.mcpServer = server.New(server.Info{
		Name:    "codequest",
		Version: "0.1.0",
	}, server.WithInstructions(`
CodeQuest is a gamified coding practice tool. Learners work through
quiz and fill-in-the-blank tasks, earning XP, points and levels.

Available tools:
- codequest_tasks: List tasks, optionally filtered or in recommended order
- codequest_start: Start a quiz session on a task (graded or practice)
- codequest_hint: Use the one hint allowed for the current question
- codequest_answer: Submit an answer and get the verdict
- codequest_status: Show level progress and, with a session id, the session
- codequest_stop: End a quiz session

Quiz flow: start, then alternate hint/answer until the phase is
"completed". One hint per question: quizzes drop a wrong option,
fill-in-the-blank tasks reveal the first character.
`))

	s.registerTools()

	return s
}

// registerTools registers all CodeQuest MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("codequest_tasks").
		Description("List tasks for the learner. Filters persist between calls.").
		Handler(s.handleTasks)

	s.mcpServer.Tool("codequest_start").
		Description("Start a quiz session on a task.").
		Handler(s.handleStart)

	s.mcpServer.Tool("codequest_hint").
		Description("Use the hint for the current question.").
		Handler(s.handleHint)

	s.mcpServer.Tool("codequest_answer").
		Description("Submit an answer for the current question.").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("codequest_status").
		Description("Get level progress and optional session status.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("codequest_stop").
		Description("End a quiz session.").
		Handler(s.handleStop)
}

// Input/Output types for tools

type TasksInput struct {
	Type          *string `json:"type,omitempty" jsonschema:"description=Task type filter (QUIZ or FILL_BLANK or CODE); empty clears"`
	Language      *string `json:"language,omitempty" jsonschema:"description=Language filter; empty clears"`
	Difficulty    *string `json:"difficulty,omitempty" jsonschema:"description=Difficulty filter (EASY or MEDIUM or HARD); empty clears"`
	Sort          *string `json:"sort,omitempty" jsonschema:"description=Sort key such as alpha_asc or xp_desc; empty clears"`
	Search        *string `json:"search,omitempty" jsonschema:"description=Case-insensitive title search"`
	HideCompleted *bool   `json:"hide_completed,omitempty" jsonschema:"description=Hide completed tasks"`
	Recommended   *bool   `json:"recommended,omitempty" jsonschema:"description=Show the recommended ranking instead of all tasks"`
	Reset         bool    `json:"reset,omitempty" jsonschema:"description=Clear all filters before applying the others"`
}

type TaskSummary struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Language   string  `json:"language"`
	Difficulty string  `json:"difficulty"`
	XP         int     `json:"xp"`
	Points     int     `json:"points"`
	Progress   float64 `json:"progress"`
	Completed  bool    `json:"completed"`
}

type TasksOutput struct {
	Filters catalog.FilterState `json:"filters"`
	Tasks   []TaskSummary       `json:"tasks"`
}

type StartInput struct {
	TaskID   int64 `json:"task_id" jsonschema:"description=Task ID from codequest_tasks"`
	Practice bool  `json:"practice,omitempty" jsonschema:"description=Practice mode: judge locally without recording progress"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from codequest_start"`
}

type AnswerInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from codequest_start"`
	Answer    string `json:"answer" jsonschema:"description=Answer text or the chosen option"`
}

// SessionView is the agent-facing rendering of a quiz state
type SessionView struct {
	SessionID       string   `json:"session_id"`
	TaskID          int64    `json:"task_id"`
	Title           string   `json:"title,omitempty"`
	Mode            string   `json:"mode"`
	Phase           string   `json:"phase"`
	QuestionNumber  int      `json:"question_number,omitempty"`
	TotalQuestions  int      `json:"total_questions"`
	Question        string   `json:"question,omitempty"`
	Options         []string `json:"options,omitempty"`
	Answer          string   `json:"answer,omitempty"`
	HintUsed        bool     `json:"hint_used"`
	ProgressPercent float64  `json:"progress_percent"`
	Error           string   `json:"error,omitempty"`
}

type AnswerOutput struct {
	Verdict      string      `json:"verdict"`
	LevelUp      bool        `json:"level_up,omitempty"`
	NewLevel     int         `json:"new_level,omitempty"`
	Appreciation string      `json:"appreciation,omitempty"`
	Session      SessionView `json:"session"`
}

type StatusInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Optional session ID"`
}

type StatusOutput struct {
	Username       string       `json:"username"`
	Level          int          `json:"level"`
	XP             int          `json:"xp"`
	Points         int          `json:"points"`
	Streak         int          `json:"streak"`
	XPToNextLevel  int          `json:"xp_to_next_level"`
	LevelPercent   float64      `json:"level_percent"`
	ActiveSessions int          `json:"active_sessions"`
	Session        *SessionView `json:"session,omitempty"`
}

type StopOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleTasks(ctx context.Context, input TasksInput) (TasksOutput, error) {
	if s.catalog == nil {
		return TasksOutput{}, fmt.Errorf("no backend configured")
	}
	user, err := s.backend.User(ctx, s.userID)
	if err != nil {
		return TasksOutput{}, fmt.Errorf("load user: %w", err)
	}

	f := catalog.NewFilters(s.filters, s.userID)
	f.Load(ctx)
	if input.Reset {
		f.Clear(ctx)
	}
	applyFilterInput(ctx, f, input)
	st := f.State()

	tasks, err := s.catalog.List(ctx, user, st)
	if err != nil {
		return TasksOutput{}, fmt.Errorf("list tasks: %w", err)
	}

	out := TasksOutput{Filters: st, Tasks: make([]TaskSummary, 0, len(tasks))}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, summarize(t))
	}
	return out, nil
}

// applyFilterInput forwards the fields the caller set. Unknown enum values
// are ignored by the controller.
func applyFilterInput(ctx context.Context, f *catalog.Filters, in TasksInput) {
	if in.Type != nil {
		f.SetType(ctx, domain.TaskType(strings.ToUpper(*in.Type)))
	}
	if in.Language != nil {
		f.SetLanguage(ctx, *in.Language)
	}
	if in.Difficulty != nil {
		f.SetDifficulty(ctx, domain.Difficulty(strings.ToUpper(*in.Difficulty)))
	}
	if in.Sort != nil {
		f.SetSort(ctx, catalog.SortKey(*in.Sort))
	}
	if in.Search != nil {
		f.SetSearch(ctx, *in.Search)
	}
	if in.HideCompleted != nil {
		f.SetHideCompleted(ctx, *in.HideCompleted)
	}
	if in.Recommended != nil {
		mode := catalog.ShowAll
		if *in.Recommended {
			mode = catalog.ShowRecommended
		}
		f.SetRecommendation(ctx, mode)
	}
}

func (s *Server) handleStart(ctx context.Context, input StartInput) (SessionView, error) {
	if s.backend == nil {
		return SessionView{}, fmt.Errorf("no backend configured")
	}
	if input.TaskID <= 0 {
		return SessionView{}, fmt.Errorf("task_id is required")
	}

	mode := quiz.ModeGraded
	var user *domain.User
	if input.Practice {
		mode = quiz.ModePractice
	} else {
		u, err := s.backend.User(ctx, s.userID)
		if err != nil {
			return SessionView{}, fmt.Errorf("load user: %w", err)
		}
		user = u
	}

	sess := quiz.New(quiz.Config{
		TaskID:        input.TaskID,
		UserID:        s.userID,
		User:          user,
		Mode:          mode,
		Source:        s.backend,
		Judge:         s.backend,
		Clock:         s.clock,
		FeedbackDelay: s.feedbackDelay,
	})
	// Session calls outlive this request
	st := sess.Load(context.WithoutCancel(ctx))
	s.sessions.add(sess)

	return view(sess, st), nil
}

func (s *Server) handleHint(ctx context.Context, input SessionInput) (SessionView, error) {
	sess, err := s.sessions.get(input.SessionID)
	if err != nil {
		return SessionView{}, err
	}
	sess.UseHint()
	return view(sess, sess.State()), nil
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (AnswerOutput, error) {
	sess, err := s.sessions.get(input.SessionID)
	if err != nil {
		return AnswerOutput{}, err
	}
	if !sess.State().Phase.AcceptsInput() {
		st := sess.State()
		return AnswerOutput{Session: view(sess, st)}, fmt.Errorf("session is %s, not answering", st.Phase)
	}

	sess.SetAnswer(input.Answer)
	submitted, err := sess.Submit(context.WithoutCancel(ctx))
	if err != nil {
		return AnswerOutput{Session: view(sess, submitted)}, err
	}

	out := AnswerOutput{Verdict: submitted.Verdict.String()}
	if submitted.Phase == quiz.PhaseCompleted && out.Verdict == "" {
		out.Verdict = "already_completed"
	}

	settled := sess.WaitSettled(ctx)
	if settled.Phase == quiz.PhaseLevelUp {
		out.LevelUp = true
		out.NewLevel = settled.NewLevel
		sess.DismissLevelUp()
		settled = sess.State()
	}
	if r, ok := appreciation.ResultFromState(settled); ok && submitted.Verdict == quiz.VerdictCorrect {
		if msg := s.praise.CheckAttempt(s.userID, r); msg != nil {
			out.Appreciation = msg.Text
		}
	}
	out.Session = view(sess, settled)
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, input StatusInput) (StatusOutput, error) {
	if s.backend == nil {
		return StatusOutput{}, fmt.Errorf("no backend configured")
	}
	user, err := s.backend.User(ctx, s.userID)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("load user: %w", err)
	}
	lp := domain.ProgressForXP(user.XP)

	out := StatusOutput{
		Username:       user.Username,
		Level:          user.Level,
		XP:             user.XP,
		Points:         user.Points,
		Streak:         user.StreakCount,
		XPToNextLevel:  lp.Remaining,
		LevelPercent:   lp.Percent,
		ActiveSessions: s.sessions.len(),
	}
	if input.SessionID != "" {
		sess, err := s.sessions.get(input.SessionID)
		if err != nil {
			return StatusOutput{}, err
		}
		v := view(sess, sess.State())
		out.Session = &v
	}
	return out, nil
}

func (s *Server) handleStop(ctx context.Context, input SessionInput) (StopOutput, error) {
	if err := s.sessions.remove(input.SessionID); err != nil {
		return StopOutput{}, err
	}
	return StopOutput{Message: "Session ended successfully"}, nil
}

// Close ends every open session
func (s *Server) Close() {
	s.sessions.closeAll()
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	defer s.Close()
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	defer s.Close()
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}

func view(sess *quiz.Session, st quiz.State) SessionView {
	v := SessionView{
		SessionID:       sess.ID().String(),
		TaskID:          sess.TaskID(),
		Mode:            st.Mode.String(),
		Phase:           st.Phase.String(),
		TotalQuestions:  st.Total(),
		Answer:          st.Answer,
		HintUsed:        st.HintUsed,
		ProgressPercent: st.ProgressPercent(),
	}
	if st.Task != nil {
		v.Title = st.Task.Title
	}
	if st.Phase == quiz.PhaseAnswering || st.Phase == quiz.PhaseSubmitting || st.Phase == quiz.PhaseFeedback {
		if q, ok := st.Question(); ok {
			v.QuestionNumber = st.Index + 1
			v.Question = q.QuestionText
			v.Options = st.Options()
		}
	}
	if st.LastErr != nil {
		v.Error = st.LastErr.Error()
	}
	return v
}

func summarize(t domain.Task) TaskSummary {
	ts := TaskSummary{
		ID:         t.ID,
		Title:      t.Title,
		Type:       string(t.Type),
		Language:   t.Language,
		Difficulty: string(t.Difficulty),
		XP:         t.XP,
		Points:     t.Points,
		Completed:  t.IsCompleted(),
	}
	if t.Progress != nil {
		ts.Progress = t.Progress.Progress
	}
	return ts
}
