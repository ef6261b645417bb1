// Package taskpack loads YAML task packs and seeds them into the local
// backend.
package taskpack

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// PackFile represents the YAML structure for a task pack
type PackFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description"`
	Tasks       []string `yaml:"tasks"`
}

// TaskFile represents the YAML structure for a task
type TaskFile struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Language    string `yaml:"language"`
	Difficulty  string `yaml:"difficulty"`
	Points      int    `yaml:"points"`
	XP          int    `yaml:"xp"`
	Questions   []struct {
		Text          string   `yaml:"text"`
		Options       []string `yaml:"options"`
		CorrectAnswer string   `yaml:"correct_answer"`
	} `yaml:"questions"`
}

// Pack is a loaded pack with its tasks
type Pack struct {
	ID          string
	Name        string
	Version     string
	Description string
	Tasks       []domain.Task
}

// Loader reads packs from a filesystem laid out as <pack>/pack.yaml
// with task files referenced relative to the pack directory.
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a loader over fsys
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// LoadPack loads a pack and all of its tasks
func (l *Loader) LoadPack(packID string) (*Pack, error) {
	data, err := fs.ReadFile(l.fsys, path.Join(packID, "pack.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var pf PackFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}
	if pf.ID == "" {
		pf.ID = packID
	}

	pack := &Pack{
		ID:          pf.ID,
		Name:        pf.Name,
		Version:     pf.Version,
		Description: pf.Description,
		Tasks:       make([]domain.Task, 0, len(pf.Tasks)),
	}
	for _, slug := range pf.Tasks {
		task, err := l.LoadTask(packID, slug)
		if err != nil {
			return nil, fmt.Errorf("load task %s/%s: %w", packID, slug, err)
		}
		pack.Tasks = append(pack.Tasks, *task)
	}
	return pack, nil
}

// LoadTask loads a single task file from packID/slug.yaml
func (l *Loader) LoadTask(packID, slug string) (*domain.Task, error) {
	if slug == "" || strings.Contains(slug, "..") {
		return nil, fmt.Errorf("%w: task slug %q", domain.ErrInvalidInput, slug)
	}

	data, err := fs.ReadFile(l.fsys, path.Join(packID, slug+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}

	task := &domain.Task{
		Title:       tf.Title,
		Description: tf.Description,
		Type:        domain.TaskType(strings.ToUpper(tf.Type)),
		Language:    tf.Language,
		Difficulty:  domain.Difficulty(strings.ToUpper(tf.Difficulty)),
		Points:      tf.Points,
		XP:          tf.XP,
		Questions:   make([]domain.TaskQuestion, len(tf.Questions)),
	}
	for i, q := range tf.Questions {
		task.Questions[i] = domain.TaskQuestion{
			QuestionText:  q.Text,
			Type:          task.Type,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
	}

	if err := Validate(task); err != nil {
		return nil, err
	}
	return task, nil
}

// LoadAll loads every pack found at the root of the filesystem
func (l *Loader) LoadAll() ([]*Pack, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read packs directory: %w", err)
	}

	var packs []*Pack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := fs.Stat(l.fsys, path.Join(entry.Name(), "pack.yaml")); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		pack, err := l.LoadPack(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", entry.Name(), err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// Validate checks a task is playable
func Validate(t *domain.Task) error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("%w: task title is required", domain.ErrInvalidInput)
	case !t.Type.Valid():
		return fmt.Errorf("%w: task %q has unknown type %q", domain.ErrInvalidInput, t.Title, t.Type)
	case !t.Difficulty.Valid():
		return fmt.Errorf("%w: task %q has unknown difficulty %q", domain.ErrInvalidInput, t.Title, t.Difficulty)
	case len(t.Questions) == 0:
		return fmt.Errorf("%w: task %q has no questions", domain.ErrInvalidInput, t.Title)
	}
	for i, q := range t.Questions {
		if q.CorrectAnswer == "" {
			return fmt.Errorf("%w: task %q question %d has no correct answer", domain.ErrInvalidInput, t.Title, i+1)
		}
		if t.Type == domain.TaskTypeQuiz && !containsAnswer(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("%w: task %q question %d: correct answer is not an option", domain.ErrInvalidInput, t.Title, i+1)
		}
	}
	return nil
}

func containsAnswer(options []string, answer string) bool {
	for _, o := range options {
		if domain.AnswersMatch(o, answer) {
			return true
		}
	}
	return false
}
