package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

type mockSource struct {
	task  *domain.Task
	err   error
	calls int
}

func (m *mockSource) TaskDetail(_ context.Context, _, _ int64) (*domain.Task, error) {
	m.calls++
	return m.task, m.err
}

type submission struct {
	questionID int64
	answer     string
}

type mockJudge struct {
	mu      sync.Mutex
	results []domain.SubmitResult
	errs    []error
	calls   []submission
}

func (m *mockJudge) SubmitAnswer(_ context.Context, _, _, questionID int64, answer string) (domain.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.calls)
	m.calls = append(m.calls, submission{questionID, answer})

	var err error
	if n < len(m.errs) {
		err = m.errs[n]
	}
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if n < len(m.results) {
		return m.results[n], nil
	}
	return domain.SubmitResult{}, nil
}

func (m *mockJudge) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// blockingJudge holds every submission until release is closed
type blockingJudge struct {
	started chan struct{}
	release chan struct{}
	result  domain.SubmitResult
	mu      sync.Mutex
	calls   int
}

func newBlockingJudge(res domain.SubmitResult) *blockingJudge {
	return &blockingJudge{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
		result:  res,
	}
}

func (b *blockingJudge) SubmitAnswer(ctx context.Context, _, _, _ int64, _ string) (domain.SubmitResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	select {
	case <-b.release:
		return b.result, nil
	case <-ctx.Done():
		return domain.SubmitResult{}, ctx.Err()
	}
}

// manualClock fires timers only when told to
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs every pending timer and returns how many ran
func (c *manualClock) Fire() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

// FireAll runs every timer ever scheduled, including stopped ones,
// simulating a timer that raced with Stop.
func (c *manualClock) FireAll() {
	c.mu.Lock()
	all := append([]*manualTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range all {
		t.f()
	}
}

func (c *manualClock) lastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return 0
	}
	return c.timers[len(c.timers)-1].delay
}

func quizTask(n int) *domain.Task {
	task := &domain.Task{ID: 10, Title: "Capitals", Type: domain.TaskTypeQuiz, XP: 50, Points: 20}
	for i := 0; i < n; i++ {
		task.Questions = append(task.Questions, domain.TaskQuestion{
			ID:            int64(100 + i),
			TaskID:        10,
			QuestionText:  "Pick one",
			Type:          domain.TaskTypeQuiz,
			Options:       []string{"A", "B", "C"},
			CorrectAnswer: "B",
		})
	}
	return task
}
