package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// TaskStore persists tasks, users and per-user progress.
type TaskStore struct {
	db  *DB
	now func() time.Time
}

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db, now: time.Now}
}

// CreateUser inserts a user and sets its ID.
func (s *TaskStore) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Level < 1 {
		u.Level = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, level, xp, points, streak_count, last_active_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Level, u.XP, u.Points, u.StreakCount, nullTime(u.LastActiveDate),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// GetUser retrieves a user by ID.
func (s *TaskStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return getUser(ctx, s.db, id)
}

// UserByName retrieves a user by username.
func (s *TaskStore) UserByName(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, userSelect+" WHERE username = ?", username)
	return scanUser(row)
}

// CreateTask inserts a task with its questions and sets the generated IDs.
func (s *TaskStore) CreateTask(ctx context.Context, t *domain.Task) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (title, description, type, language, difficulty, points, xp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Title, t.Description, string(t.Type), t.Language, string(t.Difficulty), t.Points, t.XP, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for i := range t.Questions {
			q := &t.Questions[i]
			options, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			if q.Type == "" {
				q.Type = t.Type
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO task_questions (task_id, position, question_text, type, options, correct_answer)
				VALUES (?, ?, ?, ?, ?, ?)`,
				t.ID, i, q.QuestionText, string(q.Type), string(options), q.CorrectAnswer,
			)
			if err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			if q.ID, err = res.LastInsertId(); err != nil {
				return err
			}
			q.TaskID = t.ID
		}
		return nil
	})
}

// TaskIDByTitle returns the ID of the task with the given title.
func (s *TaskStore) TaskIDByTitle(ctx context.Context, title string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM tasks WHERE title = ?", title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrTaskNotFound
	}
	return id, err
}

// ListTasks returns every active task with its questions and userID's progress.
func (s *TaskStore) ListTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	return s.loadTasks(ctx, userID, "")
}

// TaskDetail returns one active task with its questions and userID's progress.
func (s *TaskStore) TaskDetail(ctx context.Context, taskID, userID int64) (*domain.Task, error) {
	tasks, err := s.loadTasks(ctx, userID, "AND t.id = ?", taskID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return &tasks[0], nil
}

func (s *TaskStore) loadTasks(ctx context.Context, userID int64, where string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.type, t.language, t.difficulty,
			t.points, t.xp, t.created_at
		FROM tasks t WHERE t.is_active = 1 `+where+` ORDER BY t.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	index := make(map[int64]int)
	for rows.Next() {
		var t domain.Task
		var typ, diff string
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &typ, &t.Language, &diff,
			&t.Points, &t.XP, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Type = domain.TaskType(typ)
		t.Difficulty = domain.Difficulty(diff)
		t.Questions = []domain.TaskQuestion{}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	if err := s.attachQuestions(ctx, tasks, index); err != nil {
		return nil, err
	}
	if err := s.attachProgress(ctx, tasks, index, userID); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskStore) attachQuestions(ctx context.Context, tasks []domain.Task, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, question_text, type, options, correct_answer
		FROM task_questions ORDER BY task_id, position`)
	if err != nil {
		return fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q domain.TaskQuestion
		var typ, options string
		if err := rows.Scan(&q.ID, &q.TaskID, &q.QuestionText, &typ, &options, &q.CorrectAnswer); err != nil {
			return fmt.Errorf("scan question: %w", err)
		}
		i, ok := index[q.TaskID]
		if !ok {
			continue
		}
		q.Type = domain.TaskType(typ)
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return fmt.Errorf("unmarshal options: %w", err)
		}
		tasks[i].Questions = append(tasks[i].Questions, q)
	}
	return rows.Err()
}

func (s *TaskStore) attachProgress(ctx context.Context, tasks []domain.Task, index map[int64]int, userID int64) error {
	rows, err := s.db.QueryContext(ctx, progressSelect+" WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*domain.UserTaskProgress)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return err
		}
		if i, ok := index[p.TaskID]; ok {
			tasks[i].Progress = p
			byID[p.ID] = p
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(byID) == 0 {
		return nil
	}

	answers, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.progress_id, a.task_question_id, a.answer_given, a.is_correct, a.submitted_at
		FROM user_answers a
		JOIN user_task_progress p ON p.id = a.progress_id
		WHERE p.user_id = ?
		ORDER BY a.id`, userID)
	if err != nil {
		return fmt.Errorf("query answers: %w", err)
	}
	defer answers.Close()

	for answers.Next() {
		var a domain.UserAnswer
		var progressID int64
		if err := answers.Scan(&a.ID, &progressID, &a.TaskQuestionID, &a.AnswerGiven, &a.IsCorrect, &a.SubmittedAt); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		if p, ok := byID[progressID]; ok {
			p.Answers = append(p.Answers, a)
		}
	}
	return answers.Err()
}

// RecordAnswer judges and records one answer in a single transaction.
//
// Progress is created on the first submission. A correct answer
// recomputes progress from the distinct correctly answered questions;
// once every question is answered the task is completed and the user
// earns its XP and points, extends their streak and may level up.
// Submissions to a completed task fail with domain.ErrTaskAlreadyCompleted.
func (s *TaskStore) RecordAnswer(ctx context.Context, userID, taskID, questionID int64, answer string) (domain.SubmitResult, error) {
	var result domain.SubmitResult
	now := s.now()

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var xp, points int
		err := tx.QueryRowContext(ctx, "SELECT xp, points FROM tasks WHERE id = ? AND is_active = 1", taskID).Scan(&xp, &points)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		var correctAnswer string
		err = tx.QueryRowContext(ctx, "SELECT correct_answer FROM task_questions WHERE id = ? AND task_id = ?", questionID, taskID).Scan(&correctAnswer)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuestionNotFound
		}
		if err != nil {
			return fmt.Errorf("get question: %w", err)
		}

		user, err := getUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		p, err := findOrCreateProgress(ctx, tx, userID, taskID, now)
		if err != nil {
			return err
		}
		if p.IsCompleted {
			return domain.ErrTaskAlreadyCompleted
		}

		result.IsCorrect = domain.AnswersMatch(answer, correctAnswer)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_answers (progress_id, task_question_id, answer_given, is_correct, submitted_at)
			VALUES (?, ?, ?, ?, ?)`,
			p.ID, questionID, answer, result.IsCorrect, now,
		); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}

		p.Attempts++
		if !result.IsCorrect {
			p.Mistakes++
		}

		if result.IsCorrect {
			var total, solved int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM task_questions WHERE task_id = ?", taskID).Scan(&total); err != nil {
				return fmt.Errorf("count questions: %w", err)
			}
			if err := tx.QueryRowContext(ctx, `
				SELECT COUNT(DISTINCT task_question_id) FROM user_answers
				WHERE progress_id = ? AND is_correct = 1`, p.ID).Scan(&solved); err != nil {
				return fmt.Errorf("count correct answers: %w", err)
			}

			if pct := float64(solved) / float64(total) * 100; pct > p.Progress {
				p.Progress = pct
			}
			if solved >= total {
				p.Progress = 100
				p.IsCompleted = true
				p.CompletedAt = &now

				user.UpdateStreak(now)
				user.GrantReward(xp, points)
				if err := updateUser(ctx, tx, user); err != nil {
					return err
				}
				result.IsCompleted = true
				result.User = user
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE user_task_progress
			SET progress = ?, attempts = ?, mistakes = ?, is_completed = ?, completed_at = ?, updated_at = ?
			WHERE id = ?`,
			p.Progress, p.Attempts, p.Mistakes, p.IsCompleted, p.CompletedAt, now, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}
	return result, nil
}

// querier is satisfied by *DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const userSelect = `
	SELECT id, username, level, xp, points, streak_count, last_active_date
	FROM users`

func getUser(ctx context.Context, q querier, id int64) (*domain.User, error) {
	return scanUser(q.QueryRowContext(ctx, userSelect+" WHERE id = ?", id))
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var lastActive sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Level, &u.XP, &u.Points, &u.StreakCount, &lastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if lastActive.Valid {
		u.LastActiveDate = lastActive.Time
	}
	return &u, nil
}

func updateUser(ctx context.Context, q querier, u *domain.User) error {
	_, err := q.ExecContext(ctx, `
		UPDATE users SET level = ?, xp = ?, points = ?, streak_count = ?, last_active_date = ?
		WHERE id = ?`,
		u.Level, u.XP, u.Points, u.StreakCount, nullTime(u.LastActiveDate), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

const progressSelect = `
	SELECT id, user_id, task_id, progress, attempts, mistakes, is_completed, completed_at
	FROM user_task_progress`

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner) (*domain.UserTaskProgress, error) {
	var p domain.UserTaskProgress
	var completedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.TaskID, &p.Progress, &p.Attempts, &p.Mistakes, &p.IsCompleted, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	p.Answers = []domain.UserAnswer{}
	return &p, nil
}

func findOrCreateProgress(ctx context.Context, q querier, userID, taskID int64, now time.Time) (*domain.UserTaskProgress, error) {
	p, err := scanProgress(q.QueryRowContext(ctx, progressSelect+" WHERE user_id = ? AND task_id = ?", userID, taskID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO user_task_progress (user_id, task_id, updated_at) VALUES (?, ?, ?)",
		userID, taskID, now)
	if err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.UserTaskProgress{ID: id, UserID: userID, TaskID: taskID, Answers: []domain.UserAnswer{}}, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

