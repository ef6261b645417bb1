package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/codequest/internal/client"
	"github.com/felixgeelhaar/codequest/internal/config"
	"github.com/felixgeelhaar/codequest/internal/domain"
)

// cmdStart starts the daemon in the background
func cmdStart() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if isRunning(cfg) {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("setup codequest directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = dir
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(cfg) {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", cfg.Backend.URL)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'codequest logs')")
}

// cmdStop stops the daemon through its PID file
func cmdStop() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !isRunning(cfg) {
		fmt.Println("Daemon is not running")
		return nil
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(cfg) {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows the daemon status and the learner's level progress
func cmdStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !isRunning(cfg) {
		fmt.Println("Status: stopped")
		return nil
	}

	c := newClient(cfg)
	defer c.Close()
	ctx := context.Background()

	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	fmt.Printf("Status:       %s\n", st.Status)
	fmt.Printf("Version:      %s\n", st.Version)
	fmt.Printf("Schema:       v%d\n", st.SchemaVersion)
	fmt.Printf("Filter store: %s\n", st.FilterStore)
	fmt.Printf("Events:       %t\n", st.Events)
	fmt.Printf("Address:      %s\n", cfg.Backend.URL)

	user, err := c.User(ctx, cfg.Backend.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	printLevel(os.Stdout, user)
	return nil
}

func printLevel(w io.Writer, user *domain.User) {
	lp := domain.ProgressForXP(user.XP)
	fmt.Fprintf(w, "\n%s\n", user.Username)
	fmt.Fprintf(w, "Level %d  %s %.0f%%\n", user.Level, renderProgressBar(lp.Percent, 20), lp.Percent)
	if user.Level < domain.MaxLevel {
		fmt.Fprintf(w, "XP %d (%d to level %d)\n", user.XP, lp.Remaining, user.Level+1)
	} else {
		fmt.Fprintf(w, "XP %d (max level)\n", user.XP)
	}
	fmt.Fprintf(w, "Points %d  Streak %d\n", user.Points, user.StreakCount)
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(dir, "logs", "codequestd.log")
	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := max(info.Size()-4096, 0)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	if offset > 0 {
		// partial first line
		scanner.Scan()
	}
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}

// isRunning checks the health endpoint
func isRunning(cfg *config.LocalConfig) bool {
	c := client.New(client.Config{BaseURL: cfg.Backend.URL, Timeout: time.Second})
	defer c.Close()
	return c.Health(context.Background()) == nil
}

// findDaemonBinary locates the codequestd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("codequestd"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "codequestd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/codequestd", "./codequestd", "./cmd/codequestd/codequestd"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("codequestd binary not found (build with 'go build ./cmd/codequestd')")
}
