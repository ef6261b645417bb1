package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/codequest/internal/appreciation"
	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/quiz"
)

// cmdPlay runs a quiz session in the terminal
func cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	practice := fs.Bool("practice", false, "judge locally without recording progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: codequest play <taskID> [--practice]")
	}
	taskID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || taskID <= 0 {
		return fmt.Errorf("invalid task id %q", fs.Arg(0))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newClient(cfg)
	defer c.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mode := quiz.ModeGraded
	var user *domain.User
	if *practice {
		mode = quiz.ModePractice
	} else {
		user, err = c.User(ctx, cfg.Backend.UserID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
	}

	sess := quiz.New(quiz.Config{
		TaskID:        taskID,
		UserID:        cfg.Backend.UserID,
		User:          user,
		Mode:          mode,
		Source:        c,
		Judge:         c,
		FeedbackDelay: cfg.Quiz.FeedbackDelay(),
	})
	defer sess.Close()

	return play(ctx, sess, appreciation.NewService(), os.Stdin, os.Stdout)
}

// play drives sess from line input until it finishes or the user quits.
// praise may be nil.
func play(ctx context.Context, sess *quiz.Session, praise *appreciation.Service, in io.Reader, out io.Writer) error {
	st := sess.Load(ctx)
	if st.Task != nil {
		fmt.Fprintf(out, "%s (%s, %s mode)\n", st.Task.Title, st.Task.Difficulty, st.Mode)
	}

	lines := bufio.NewScanner(in)
	for {
		switch st.Phase {
		case quiz.PhaseCompleted:
			fmt.Fprintln(out, "Task completed!")
			return nil
		case quiz.PhaseUnavailable:
			if st.LastErr != nil {
				return fmt.Errorf("load task: %w", st.LastErr)
			}
			return fmt.Errorf("task %d not found", sess.TaskID())
		case quiz.PhaseEmpty:
			fmt.Fprintln(out, "This task has no questions yet.")
			return nil
		case quiz.PhaseLevelUp:
			fmt.Fprintf(out, "*** Level up! You reached level %d ***\n", st.NewLevel)
			sess.DismissLevelUp()
			st = sess.State()
			continue
		}

		printQuestion(out, st)
		fmt.Fprint(out, "> ")
		if !lines.Scan() {
			fmt.Fprintln(out)
			return lines.Err()
		}
		input := strings.TrimSpace(lines.Text())

		switch input {
		case ":quit", ":q":
			fmt.Fprintln(out, "Bye.")
			return nil
		case ":hint", ":h":
			if !sess.UseHint() {
				fmt.Fprintln(out, "No hint available.")
			}
			st = sess.State()
			continue
		case "":
			st = sess.State()
			continue
		}

		sess.SetAnswer(resolveOption(st, input))
		submitted, err := sess.Submit(ctx)
		if err != nil {
			fmt.Fprintf(out, "Could not submit: %v\n", err)
			st = sess.State()
			continue
		}
		switch submitted.Verdict {
		case quiz.VerdictCorrect:
			fmt.Fprintln(out, "Correct!")
		case quiz.VerdictIncorrect:
			fmt.Fprintln(out, "Not quite, try again.")
		}
		st = sess.WaitSettled(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if r, ok := appreciation.ResultFromState(st); ok && praise != nil && submitted.Verdict == quiz.VerdictCorrect {
			if msg := praise.CheckAttempt(sess.UserID(), r); msg != nil {
				fmt.Fprintln(out, msg.Text)
			}
		}
	}
}

func printQuestion(out io.Writer, st quiz.State) {
	q, ok := st.Question()
	if !ok {
		return
	}
	fmt.Fprintf(out, "\n[%d/%d] %s %s\n", st.Index+1, st.Total(), renderProgressBar(st.ProgressPercent(), 10), q.QuestionText)
	for i, opt := range st.Options() {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
	if st.HintUsed && q.Type == domain.TaskTypeFillBlank {
		if r := []rune(q.CorrectAnswer); len(r) > 0 {
			fmt.Fprintf(out, "  hint: starts with %q\n", string(r[0]))
		}
	}
}

// resolveOption maps an option number to its text for quiz questions
func resolveOption(st quiz.State, input string) string {
	opts := st.Options()
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(opts) {
		return opts[n-1]
	}
	return input
}
