package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/codequest/internal/appreciation"
	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/quiz"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "[░░░░]"},
		{50, "[██░░]"},
		{100, "[████]"},
		{150, "[████]"},
		{-10, "[░░░░]"},
	}
	for _, tt := range tests {
		if got := renderProgressBar(tt.percent, 4); got != tt.want {
			t.Errorf("renderProgressBar(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestTaskFlags_Apply(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	tf := newTaskFlags()
	if err := tf.fs.Parse([]string{"--lang", "Go", "--diff", "easy", "--sort", "XP_DESC"}); err != nil {
		t.Fatal(err)
	}
	f := catalog.NewFilters(store, 1)
	f.Load(ctx)
	if err := tf.apply(ctx, f); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	// a second run only touches the flags it names
	tf = newTaskFlags()
	tf.fs.Parse([]string{"--recommended"})
	f = catalog.NewFilters(store, 1)
	f.Load(ctx)
	if err := tf.apply(ctx, f); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	st := f.State()
	want := catalog.FilterState{
		LangFilter:           "Go",
		DiffFilter:           domain.DifficultyEasy,
		SortBy:               catalog.SortXPDesc,
		RecommendationFilter: catalog.ShowRecommended,
	}
	if st != want {
		t.Errorf("state = %+v, want %+v", st, want)
	}
}

func TestTaskFlags_ApplyRejectsBadInput(t *testing.T) {
	tests := [][]string{
		{"--diff", "impossible"},
		{"--type", "essay"},
		{"--sort", "random"},
		{"--recommended", "--all"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			tf := newTaskFlags()
			if err := tf.fs.Parse(args); err != nil {
				t.Fatal(err)
			}
			f := catalog.NewFilters(catalog.NewMemoryStore(), 1)
			if err := tf.apply(context.Background(), f); err == nil {
				t.Error("expected error")
			}
			if !f.State().IsDefault() {
				t.Errorf("state changed on bad input: %+v", f.State())
			}
		})
	}
}

func TestDescribeFilters(t *testing.T) {
	if got := describeFilters(catalog.DefaultFilterState()); got != "Filters: none" {
		t.Errorf("default = %q", got)
	}
	st := catalog.FilterState{LangFilter: "Go", HideCompleted: true, RecommendationFilter: catalog.ShowRecommended}
	if got := describeFilters(st); got != "Filters: recommended lang=Go hide-completed" {
		t.Errorf("describeFilters() = %q", got)
	}
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	printTasks(&buf, nil)
	if !strings.Contains(buf.String(), "No tasks match") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	printTasks(&buf, []domain.Task{
		{ID: 1, Title: "Slices", Progress: &domain.UserTaskProgress{IsCompleted: true}},
		{ID: 2, Title: "Maps", Progress: &domain.UserTaskProgress{Progress: 50}},
	})
	out := buf.String()
	if !strings.Contains(out, "done") || !strings.Contains(out, "50%") {
		t.Errorf("output = %q", out)
	}
}

type taskSource struct{ task *domain.Task }

func (s taskSource) TaskDetail(context.Context, int64, int64) (*domain.Task, error) {
	return s.task, nil
}

type instantClock struct{}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (instantClock) AfterFunc(_ time.Duration, f func()) quiz.Timer {
	go f()
	return noopTimer{}
}

func TestPlay_Practice(t *testing.T) {
	task := &domain.Task{
		ID: 3, Title: "Python Loops", Difficulty: domain.DifficultyMedium,
		Questions: []domain.TaskQuestion{
			{ID: 31, Type: domain.TaskTypeFillBlank, QuestionText: "for i in ___(3):", CorrectAnswer: "range"},
			{ID: 32, Type: domain.TaskTypeQuiz, QuestionText: "Loop keyword?", Options: []string{"loop", "for"}, CorrectAnswer: "for"},
		},
	}
	sess := quiz.New(quiz.Config{
		TaskID: 3,
		Mode:   quiz.ModePractice,
		Source: taskSource{task: task},
		Clock:  instantClock{},
	})
	defer sess.Close()

	in := strings.NewReader(":hint\nrepeat\nrange\n2\n")
	var out bytes.Buffer
	if err := play(context.Background(), sess, appreciation.NewService(), in, &out); err != nil {
		t.Fatalf("play() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{`hint: starts with "r"`, "Not quite", "Correct!", "2) for", "Task completed!"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlay_QuitAndMissingTask(t *testing.T) {
	sess := quiz.New(quiz.Config{TaskID: 9, Mode: quiz.ModePractice, Source: taskSource{}, Clock: instantClock{}})
	defer sess.Close()
	if err := play(context.Background(), sess, nil, strings.NewReader(""), &bytes.Buffer{}); err == nil {
		t.Error("expected error for a missing task")
	}

	task := &domain.Task{ID: 4, Questions: []domain.TaskQuestion{{ID: 41, QuestionText: "?", CorrectAnswer: "x"}}}
	sess = quiz.New(quiz.Config{TaskID: 4, Mode: quiz.ModePractice, Source: taskSource{task: task}, Clock: instantClock{}})
	defer sess.Close()
	var out bytes.Buffer
	if err := play(context.Background(), sess, nil, strings.NewReader(":quit\n"), &out); err != nil {
		t.Fatalf("play() error = %v", err)
	}
	if !strings.Contains(out.String(), "Bye.") {
		t.Errorf("output = %q", out.String())
	}
}
