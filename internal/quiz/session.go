package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// DefaultFeedbackDelay is how long a verdict stays on screen
const DefaultFeedbackDelay = 1500 * time.Millisecond

// ErrSessionClosed is returned by operations on a closed session
var ErrSessionClosed = errors.New("quiz session closed")

// Config configures a Session
type Config struct {
	TaskID int64
	UserID int64
	// User is the snapshot held before any submission; level-ups are
	// detected against it.
	User          *domain.User
	Mode          Mode
	Source        TaskSource
	Judge         AnswerJudge // unused in practice mode
	Clock         Clock
	FeedbackDelay time.Duration
	// OnChange is called after every state change, outside the session lock
	OnChange func(State)
}

// Session is the controller for one quiz attempt. It is safe for
// concurrent use; at most one load or submission is in flight at a time.
type Session struct {
	id     uuid.UUID
	taskID int64
	userID int64

	source   TaskSource
	judge    AnswerJudge
	clock    Clock
	delay    time.Duration
	onChange func(State)

	mu      sync.Mutex
	state   State
	closed  bool
	seq     uint64 // bumped by every load, submission and Close
	timer   Timer
	cancel  context.CancelFunc
	changed chan struct{}
}

// New creates a session in the loading phase. Call Load to fetch the task.
func New(cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock
	}
	delay := cfg.FeedbackDelay
	if delay <= 0 {
		delay = DefaultFeedbackDelay
	}

	return &Session{
		id:       uuid.New(),
		taskID:   cfg.TaskID,
		userID:   cfg.UserID,
		source:   cfg.Source,
		judge:    cfg.Judge,
		clock:    clock,
		delay:    delay,
		onChange: cfg.OnChange,
		state:    NewState(cfg.Mode, cfg.User),
		changed:  make(chan struct{}),
	}
}

// ID uniquely identifies the session
func (s *Session) ID() uuid.UUID {
	return s.id
}

// TaskID returns the task being attempted
func (s *Session) TaskID() int64 {
	return s.taskID
}

// UserID returns the learner the attempt belongs to
func (s *Session) UserID() int64 {
	return s.userID
}

// State returns the current snapshot
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load fetches the task and enters the first playable phase. Calling it
// again restarts the attempt from a fresh fetch. Fetch failures and
// missing tasks end in PhaseUnavailable; they are not retried.
func (s *Session) Load(ctx context.Context) State {
	s.mu.Lock()
	if s.closed {
		st := s.state
		s.mu.Unlock()
		return st
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = NewState(s.state.Mode, s.state.User)
	seq, ctx := s.beginLocked(ctx)
	s.mu.Unlock()

	task, err := s.source.TaskDetail(ctx, s.taskID, s.userID)

	var ev Event = Loaded{Task: task}
	if err != nil {
		slog.Warn("failed to load quiz task", "task_id", s.taskID, "user_id", s.userID, "error", err)
		ev = LoadFailed{Err: err}
	}
	return s.finish(seq, ev)
}

// SetAnswer replaces the answer text. It reports whether the state changed;
// edits outside the answering phase are ignored.
func (s *Session) SetAnswer(answer string) bool {
	return s.dispatchIfChanged(AnswerChanged{Answer: answer})
}

// UseHint applies the question's hint. It reports whether a hint was applied.
func (s *Session) UseHint() bool {
	return s.dispatchIfChanged(HintRequested{})
}

// DismissLevelUp closes the level-up overlay
func (s *Session) DismissLevelUp() bool {
	return s.dispatchIfChanged(LevelUpDismissed{})
}

// Submit sends the current answer to the judge. It is a no-op returning
// the current state when no submission is possible: another is in
// flight, feedback is showing, or there is no question or answer.
//
// A transient judge failure returns the error and leaves the session
// answering the same question so the user can retry.
func (s *Session) Submit(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.closed {
		st := s.state
		s.mu.Unlock()
		return st, ErrSessionClosed
	}
	if !CanSubmit(s.state) {
		st := s.state
		s.mu.Unlock()
		return st, nil
	}
	q, _ := s.state.Question()
	answer := s.state.Answer
	judge := s.judge
	if s.state.Mode == ModePractice {
		judge = NewPracticeJudge(s.state.Task)
	}
	s.dispatchLocked(SubmitStarted{})
	seq, ctx := s.beginLocked(ctx)
	snapshot := s.state
	s.mu.Unlock()
	s.notify(snapshot)

	res, err := judge.SubmitAnswer(ctx, s.userID, s.taskID, q.ID, answer)

	switch {
	case err == nil:
		st := s.finish(seq, SubmitResolved{Result: res})
		s.scheduleFeedback(seq)
		return st, nil
	case errors.Is(err, domain.ErrTaskAlreadyCompleted):
		slog.Info("task already completed, finishing session", "task_id", s.taskID, "user_id", s.userID)
		return s.finish(seq, AlreadyCompleted{}), nil
	default:
		slog.Warn("answer submission failed", "task_id", s.taskID, "question_id", q.ID, "error", err)
		return s.finish(seq, SubmitFailed{Err: err}), fmt.Errorf("submit answer: %w", err)
	}
}

// Close tears the session down. Pending timers are stopped, in-flight
// calls are cancelled and their results discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	close(s.changed)
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// WaitSettled blocks until the session leaves the loading, submitting
// and feedback phases, the session closes, or ctx is done.
func (s *Session) WaitSettled(ctx context.Context) State {
	for {
		s.mu.Lock()
		st, ch, closed := s.state, s.changed, s.closed
		s.mu.Unlock()

		if closed || !transient(st.Phase) {
			return st
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st
		}
	}
}

func transient(p Phase) bool {
	return p == PhaseLoading || p == PhaseSubmitting || p == PhaseFeedback
}

// beginLocked starts a new async operation and returns its sequence number
func (s *Session) beginLocked(ctx context.Context) (uint64, context.Context) {
	s.seq++
	if s.cancel != nil {
		s.cancel()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	return s.seq, ctx
}

// finish applies the outcome of the async operation seq unless the
// session was closed or moved on in the meantime.
func (s *Session) finish(seq uint64, ev Event) State {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		st := s.state
		s.mu.Unlock()
		return st
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.dispatchLocked(ev)
	st := s.state
	s.mu.Unlock()
	s.notify(st)
	return st
}

func (s *Session) scheduleFeedback(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq || s.state.Phase != PhaseFeedback {
		return
	}
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.feedbackElapsed(seq)
	})
}

func (s *Session) feedbackElapsed(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.dispatchLocked(FeedbackElapsed{})
	st := s.state
	s.mu.Unlock()
	s.notify(st)
}

func (s *Session) dispatchIfChanged(ev Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	before := s.state
	s.dispatchLocked(ev)
	st := s.state
	s.mu.Unlock()

	if !sameState(before, st) {
		s.notify(st)
		return true
	}
	return false
}

func (s *Session) dispatchLocked(ev Event) {
	s.state = Reduce(s.state, ev)
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

// sameState compares the fields user input can change
func sameState(a, b State) bool {
	if a.Phase != b.Phase || a.Answer != b.Answer || a.HintUsed != b.HintUsed || a.Index != b.Index {
		return false
	}
	return len(a.HintedOptions) == len(b.HintedOptions) && (a.HintedOptions == nil) == (b.HintedOptions == nil)
}
