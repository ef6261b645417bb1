package taskpack

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

//go:embed builtin
var builtinFS embed.FS

// Builtin returns the packs shipped with the binary
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store is the subset of the task store used for seeding
type Store interface {
	TaskIDByTitle(ctx context.Context, title string) (int64, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UserByName(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

// SeedResult counts what Seed inserted
type SeedResult struct {
	Tasks int
	Users int
}

// Seed inserts the tasks of packs and the named users. Tasks and users
// that already exist are left untouched.
func Seed(ctx context.Context, store Store, packs []*Pack, usernames []string) (SeedResult, error) {
	var res SeedResult

	for _, pack := range packs {
		for i := range pack.Tasks {
			task := pack.Tasks[i]
			_, err := store.TaskIDByTitle(ctx, task.Title)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrTaskNotFound) {
				return res, fmt.Errorf("look up task %q: %w", task.Title, err)
			}
			task.Questions = append([]domain.TaskQuestion(nil), task.Questions...)
			if err := store.CreateTask(ctx, &task); err != nil {
				return res, fmt.Errorf("create task %q: %w", task.Title, err)
			}
			res.Tasks++
		}
		slog.Debug("seeded task pack", "pack", pack.ID, "tasks", len(pack.Tasks))
	}

	for _, name := range usernames {
		_, err := store.UserByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return res, fmt.Errorf("look up user %q: %w", name, err)
		}
		if err := store.CreateUser(ctx, &domain.User{Username: name, Level: 1}); err != nil {
			return res, fmt.Errorf("create user %q: %w", name, err)
		}
		res.Users++
	}

	if res.Tasks > 0 || res.Users > 0 {
		slog.Info("seeded local backend", "tasks", res.Tasks, "users", res.Users)
	}
	return res, nil
}
