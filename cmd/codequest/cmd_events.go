package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/felixgeelhaar/codequest/internal/domain"
	"github.com/felixgeelhaar/codequest/internal/queue"
)

// cmdEvents tails progress events from the broker until interrupted
func cmdEvents() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := queue.NewConnection(cfg.Events.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sub := queue.NewSubscriber(conn)
	sub.Subscribe(queue.AllEvents, func(ev *domain.ProgressEvent) {
		a := domain.ActivityFromEvent(*ev)
		fmt.Printf("%s  user=%d task=%d  %-18s %s\n",
			ev.OccurredAt.Format("15:04:05"), ev.UserID, ev.TaskID, ev.Type, a.Description)
	})
	if err := sub.Start(ctx); err != nil {
		return err
	}
	defer sub.Stop()

	fmt.Println("Waiting for events (Ctrl+C to stop)...")
	<-ctx.Done()
	return nil
}

// cmdActivity prints the learner's recent activity
func cmdActivity(args []string) error {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	limit := fs.Int("n", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return fmt.Errorf("-n must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newClient(cfg)
	defer c.Close()

	entries, err := c.Activity(context.Background(), cfg.Backend.UserID, *limit)
	if err != nil {
		return fmt.Errorf("get activity: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No activity yet. Try 'codequest play <id>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTASK\tACTIVITY\tXP\tPOINTS")
	for _, a := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n",
			a.OccurredAt.Local().Format("2006-01-02 15:04"), a.TaskID, a.Description, a.XPEarned, a.PointsEarned)
	}
	return w.Flush()
}
