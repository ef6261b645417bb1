package taskpack

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

const packYAML = `id: test-pack
name: Test Pack
version: "1.0.0"
description: A test task pack
tasks:
  - go/basics
`

const taskYAML = `title: Go Basics
description: Warm-up quiz
type: quiz
language: Go
difficulty: easy
points: 10
xp: 5
questions:
  - text: Keyword to start a goroutine?
    options: [go, async, spawn]
    correct_answer: go
  - text: Zero value of a pointer?
    options: ["0", "nil", "empty"]
    correct_answer: "nil"
`

func TestLoader_LoadPack(t *testing.T) {
	fsys := fstest.MapFS{
		"test-pack/pack.yaml":      {Data: []byte(packYAML)},
		"test-pack/go/basics.yaml": {Data: []byte(taskYAML)},
	}

	pack, err := NewLoader(fsys).LoadPack("test-pack")
	if err != nil {
		t.Fatalf("LoadPack() error = %v", err)
	}

	if pack.ID != "test-pack" {
		t.Errorf("pack.ID = %q, want %q", pack.ID, "test-pack")
	}
	if pack.Version != "1.0.0" {
		t.Errorf("pack.Version = %q, want %q", pack.Version, "1.0.0")
	}
	if len(pack.Tasks) != 1 {
		t.Fatalf("len(pack.Tasks) = %d, want 1", len(pack.Tasks))
	}

	task := pack.Tasks[0]
	if task.Type != domain.TaskTypeQuiz {
		t.Errorf("task.Type = %q, want QUIZ", task.Type)
	}
	if task.Difficulty != domain.DifficultyEasy {
		t.Errorf("task.Difficulty = %q, want EASY", task.Difficulty)
	}
	if len(task.Questions) != 2 {
		t.Fatalf("len(task.Questions) = %d, want 2", len(task.Questions))
	}
	if task.Questions[1].CorrectAnswer != "nil" || task.Questions[1].Type != domain.TaskTypeQuiz {
		t.Errorf("question = %+v", task.Questions[1])
	}
}

func TestLoader_LoadPackMissingTask(t *testing.T) {
	fsys := fstest.MapFS{
		"test-pack/pack.yaml": {Data: []byte(packYAML)},
	}
	if _, err := NewLoader(fsys).LoadPack("test-pack"); err == nil {
		t.Error("LoadPack() should fail when a listed task file is missing")
	}
}

func TestLoader_LoadTaskRejectsTraversal(t *testing.T) {
	_, err := NewLoader(fstest.MapFS{}).LoadTask("pack", "../secrets")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v; want ErrInvalidInput", err)
	}
}

func TestLoader_LoadAllSkipsNonPacks(t *testing.T) {
	fsys := fstest.MapFS{
		"test-pack/pack.yaml":      {Data: []byte(packYAML)},
		"test-pack/go/basics.yaml": {Data: []byte(taskYAML)},
		"notes/readme.txt":         {Data: []byte("not a pack")},
		"loose.yaml":               {Data: []byte("id: loose")},
	}

	packs, err := NewLoader(fsys).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(packs) != 1 || packs[0].ID != "test-pack" {
		t.Errorf("packs = %+v", packs)
	}
}

func TestBuiltinPacksAreValid(t *testing.T) {
	packs, err := NewLoader(Builtin()).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(packs) == 0 {
		t.Fatal("no builtin packs")
	}

	seen := make(map[string]bool)
	for _, p := range packs {
		for _, task := range p.Tasks {
			if seen[task.Title] {
				t.Errorf("duplicate task title %q", task.Title)
			}
			seen[task.Title] = true
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *domain.Task {
		return &domain.Task{
			Title:      "T",
			Type:       domain.TaskTypeQuiz,
			Difficulty: domain.DifficultyEasy,
			Questions: []domain.TaskQuestion{
				{QuestionText: "q", Options: []string{"a", "b"}, CorrectAnswer: "b"},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*domain.Task)
		ok     bool
	}{
		{"valid", func(*domain.Task) {}, true},
		{"missing title", func(t *domain.Task) { t.Title = " " }, false},
		{"bad type", func(t *domain.Task) { t.Type = "ESSAY" }, false},
		{"bad difficulty", func(t *domain.Task) { t.Difficulty = "EXTREME" }, false},
		{"no questions", func(t *domain.Task) { t.Questions = nil }, false},
		{"answer not an option", func(t *domain.Task) { t.Questions[0].CorrectAnswer = "z" }, false},
		{"fill blank without options", func(t *domain.Task) {
			t.Type = domain.TaskTypeFillBlank
			t.Questions[0].Options = nil
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid()
			tt.mutate(task)
			err := Validate(task)
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Validate() error = %v; want ErrInvalidInput", err)
			}
		})
	}
}
