package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/felixgeelhaar/codequest/internal/catalog"
	"github.com/felixgeelhaar/codequest/internal/domain"
)

// taskFlags are the tasks command's filter options. Only flags given on
// the command line change the saved state.
type taskFlags struct {
	fs            *flag.FlagSet
	recommended   bool
	all           bool
	typ           string
	lang          string
	diff          string
	sort          string
	search        string
	hideCompleted bool
	reset         bool
}

func newTaskFlags() *taskFlags {
	f := &taskFlags{fs: flag.NewFlagSet("tasks", flag.ContinueOnError)}
	f.fs.BoolVar(&f.recommended, "recommended", false, "show the recommended ranking")
	f.fs.BoolVar(&f.all, "all", false, "show every task instead of the recommended ranking")
	f.fs.StringVar(&f.typ, "type", "", "task type filter: QUIZ, FILL_BLANK or CODE (empty clears)")
	f.fs.StringVar(&f.lang, "lang", "", "language filter (empty clears)")
	f.fs.StringVar(&f.diff, "diff", "", "difficulty filter: EASY, MEDIUM or HARD (empty clears)")
	f.fs.StringVar(&f.sort, "sort", "", "sort key: alpha_asc, alpha_desc, xp_asc, xp_desc, points_asc, points_desc, created_asc, created_desc")
	f.fs.StringVar(&f.search, "search", "", "case-insensitive title search")
	f.fs.BoolVar(&f.hideCompleted, "hide-completed", false, "hide completed tasks")
	f.fs.BoolVar(&f.reset, "reset", false, "clear saved filters first")
	return f
}

// apply validates the given flags and writes them through the controller
func (tf *taskFlags) apply(ctx context.Context, f *catalog.Filters) error {
	set := make(map[string]bool)
	tf.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["recommended"] && set["all"] {
		return fmt.Errorf("--recommended and --all are mutually exclusive")
	}
	typ, err := catalog.ParseTaskType(strings.ToUpper(tf.typ))
	if err != nil {
		return err
	}
	diff, err := catalog.ParseDifficulty(strings.ToUpper(tf.diff))
	if err != nil {
		return err
	}
	sortKey, err := catalog.ParseSortKey(strings.ToLower(tf.sort))
	if err != nil {
		return err
	}

	if tf.reset {
		f.Clear(ctx)
	}
	if set["type"] {
		f.SetType(ctx, typ)
	}
	if set["lang"] {
		f.SetLanguage(ctx, tf.lang)
	}
	if set["diff"] {
		f.SetDifficulty(ctx, diff)
	}
	if set["sort"] {
		f.SetSort(ctx, sortKey)
	}
	if set["search"] {
		f.SetSearch(ctx, tf.search)
	}
	if set["hide-completed"] {
		f.SetHideCompleted(ctx, tf.hideCompleted)
	}
	switch {
	case set["recommended"]:
		f.SetRecommendation(ctx, catalog.ShowRecommended)
	case set["all"]:
		f.SetRecommendation(ctx, catalog.ShowAll)
	}
	return nil
}

// cmdTasks updates the saved filters and prints the resulting list
func cmdTasks(args []string) error {
	tf := newTaskFlags()
	if err := tf.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newClient(cfg)
	defer c.Close()
	ctx := context.Background()

	user, err := c.User(ctx, cfg.Backend.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	filters := catalog.NewFilters(c.FilterStore(), user.ID)
	filters.Load(ctx)
	if err := tf.apply(ctx, filters); err != nil {
		return err
	}
	st := filters.State()

	svc := catalog.NewService(c, c, catalog.NewPipeline(newScorer(cfg)))
	tasks, err := svc.List(ctx, user, st)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	fmt.Println(describeFilters(st))
	printTasks(os.Stdout, tasks)
	return nil
}

// cmdFilters shows or clears the saved filter state
func cmdFilters(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newClient(cfg)
	defer c.Close()
	ctx := context.Background()

	filters := catalog.NewFilters(c.FilterStore(), cfg.Backend.UserID)
	switch sub {
	case "show":
		fmt.Println(describeFilters(filters.Load(ctx)))
	case "clear":
		filters.Clear(ctx)
		fmt.Println("Filters cleared")
	default:
		return fmt.Errorf("unknown filters command: %s (valid: show, clear)", sub)
	}
	return nil
}

// cmdRecommend prints the local scorer's ranking with scores
func cmdRecommend(args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	limit := fs.Int("n", 10, "number of recommendations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newClient(cfg)
	defer c.Close()
	ctx := context.Background()

	user, err := c.User(ctx, cfg.Backend.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	tasks, err := c.TasksForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	scored := newScorer(cfg).Score(tasks, user)
	if len(scored) == 0 {
		fmt.Println("Nothing to recommend at your level. Well done!")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tTITLE\tDIFFICULTY\tXP")
	for i, s := range scored {
		if *limit > 0 && i >= *limit {
			break
		}
		fmt.Fprintf(w, "%.2f\t%d\t%s\t%s\t%d\n", s.Score, s.Task.ID, s.Task.Title, s.Task.Difficulty, s.Task.XP)
	}
	return w.Flush()
}

func describeFilters(st catalog.FilterState) string {
	if st.IsDefault() {
		return "Filters: none"
	}
	var parts []string
	if st.Recommended() {
		parts = append(parts, "recommended")
	}
	add := func(name, v string) {
		if v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	add("type", string(st.TypeFilter))
	add("lang", st.LangFilter)
	add("diff", string(st.DiffFilter))
	add("sort", string(st.SortBy))
	add("search", st.SearchQuery)
	if st.HideCompleted {
		parts = append(parts, "hide-completed")
	}
	return "Filters: " + strings.Join(parts, " ")
}

func printTasks(out io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks match.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tLANGUAGE\tDIFFICULTY\tXP\tPROGRESS")
	for _, t := range tasks {
		progress := "-"
		switch {
		case t.IsCompleted():
			progress = "done"
		case t.Progress != nil:
			progress = fmt.Sprintf("%.0f%%", t.Progress.Progress)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", t.ID, t.Title, t.Type, t.Language, t.Difficulty, t.XP, progress)
	}
	w.Flush()
}
