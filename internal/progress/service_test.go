package progress

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/storage/sqlite"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	svc   *Service
	store *sqlite.TaskStore
	pub   *recordingPublisher
	user  *domain.User
	tasks []*domain.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	store := sqlite.NewTaskStore(db)
	user := &domain.User{Username: "grace", XP: 95}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	specs := []struct {
		title string
		typ   domain.TaskType
		lang  string
		diff  domain.Difficulty
	}{
		{"Slices", domain.TaskTypeQuiz, "go", domain.DifficultyEasy},
		{"Closures", domain.TaskTypeFillBlank, "javascript", domain.DifficultyMedium},
		{"Generics", domain.TaskTypeQuiz, "go", domain.DifficultyHard},
	}
	var tasks []*domain.Task
	for _, sp := range specs {
		task := &domain.Task{
			Title: sp.title, Type: sp.typ, Language: sp.lang, Difficulty: sp.diff,
			XP: 10, Points: 5,
			Questions: []domain.TaskQuestion{
				{QuestionText: "q1", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			},
		}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
		tasks = append(tasks, task)
	}

	pub := &recordingPublisher{}
	return &fixture{svc: NewService(store, pub), store: store, pub: pub, user: user, tasks: tasks}
}

func TestService_SubmitAnswerPublishesEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.tasks[0]
	qID := task.Questions[0].ID

	res, err := f.svc.SubmitAnswer(ctx, f.user.ID, task.ID, qID, "b")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if res.IsCorrect {
		t.Error("wrong answer judged correct")
	}

	res, err = f.svc.SubmitAnswer(ctx, f.user.ID, task.ID, qID, "A")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if !res.IsCompleted || res.User == nil || res.User.Level != 2 {
		t.Fatalf("result = %+v", res)
	}

	want := []string{
		domain.EventAnswerSubmitted,
		domain.EventAnswerSubmitted,
		domain.EventTaskCompleted,
		domain.EventLevelUp,
	}
	got := f.pub.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %q; want %q", i, got[i], want[i])
		}
	}

	completed := f.pub.events[2]
	if completed.XP != 10 || completed.Points != 5 {
		t.Errorf("completed event = %+v", completed)
	}
}

func TestService_SubmitAnswerAlreadyCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.tasks[0]
	qID := task.Questions[0].ID

	if _, err := f.svc.SubmitAnswer(ctx, f.user.ID, task.ID, qID, "a"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	_, err := f.svc.SubmitAnswer(ctx, f.user.ID, task.ID, qID, "a")
	if !errors.Is(err, domain.ErrTaskAlreadyCompleted) {
		t.Errorf("err = %v; want ErrTaskAlreadyCompleted", err)
	}
}

func TestService_PublishFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	task := f.tasks[0]

	res, err := f.svc.SubmitAnswer(context.Background(), f.user.ID, task.ID, task.Questions[0].ID, "a")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if !res.IsCorrect {
		t.Error("answer should be correct")
	}
}

func TestService_TaskDetailMissing(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.TaskDetail(context.Background(), 999, f.user.ID)
	if err != nil {
		t.Fatalf("TaskDetail() error = %v", err)
	}
	if task != nil {
		t.Errorf("TaskDetail() = %+v; want nil", task)
	}
}

func TestService_RecommendedTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := &domain.User{Username: "ada", Level: 3, XP: 250}
	if err := f.store.CreateUser(ctx, ada); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	// Complete the easy Go quiz so Go gains affinity and QUIZ becomes the last type.
	easy := f.tasks[0]
	if _, err := f.svc.SubmitAnswer(ctx, ada.ID, easy.ID, easy.Questions[0].ID, "a"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	recs, err := f.svc.RecommendedTasks(ctx, ada.ID)
	if err != nil {
		t.Fatalf("RecommendedTasks() error = %v", err)
	}
	// Slices is completed and Generics (HARD) is outside the level 3 band.
	if len(recs) != 1 || recs[0].Title != "Closures" {
		t.Fatalf("recs = %v; want [Closures]", titles(recs))
	}
}

func TestService_RecommendedTasksStayInTargetBand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recs, err := f.svc.RecommendedTasks(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("RecommendedTasks() error = %v", err)
	}
	for _, r := range recs {
		if r.Difficulty != domain.DifficultyEasy {
			t.Errorf("%s (%s) recommended to a level 1 user", r.Title, r.Difficulty)
		}
	}
	if len(recs) != 1 || recs[0].Title != "Slices" {
		t.Errorf("recs = %v; want [Slices]", titles(recs))
	}
}

func titles(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestService_UnknownUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.RecommendedTasks(context.Background(), 999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("err = %v; want ErrUserNotFound", err)
	}
}

func TestHistory_OrdersByFirstAttempt(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, Language: "go", Type: domain.TaskTypeQuiz, Progress: &domain.UserTaskProgress{ID: 7}},
		{ID: 2, Language: "python"},
		{ID: 3, Language: "rust", Type: domain.TaskTypeCode, Progress: &domain.UserTaskProgress{ID: 3, IsCompleted: true}},
	}

	h := History(tasks)
	if len(h) != 2 {
		t.Fatalf("len(History) = %d; want 2", len(h))
	}
	if h[0].Language != "rust" || !h[0].Completed {
		t.Errorf("h[0] = %+v", h[0])
	}
	if h[1].Language != "go" || h[1].Type != domain.TaskTypeQuiz {
		t.Errorf("h[1] = %+v", h[1])
	}
}
