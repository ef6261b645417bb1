package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/codequest/internal/client"
	"github.com/felixgeelhaar/codequest/internal/config"
	"github.com/felixgeelhaar/codequest/internal/recommend"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "codequestd.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "tasks":
		err = cmdTasks(args)
	case "filters":
		err = cmdFilters(args)
	case "recommend":
		err = cmdRecommend(args)
	case "play":
		err = cmdPlay(args)
	case "activity":
		err = cmdActivity(args)
	case "events":
		err = cmdEvents()
	case "mcp":
		err = cmdMCP(args)
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("codequest %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`CodeQuest - Gamified Coding Practice

Usage:
  codequest <command> [arguments]

Daemon Commands:
  start           Start the CodeQuest daemon
  stop            Stop the CodeQuest daemon
  status          Show daemon status and level progress
  logs            View daemon logs

Learning Commands:
  tasks           List tasks (filters persist between runs)
  filters show    Show the saved task filters
  filters clear   Reset the saved task filters
  recommend       Show scored recommendations
  play <id>       Play a task in the terminal
  activity        Show recent activity

Integration Commands:
  events          Tail progress events from RabbitMQ
  mcp             Start MCP server (stdio, or --http <addr>)

Other:
  help            Show this help message
  version         Show version information

Examples:
  codequest start
  codequest tasks --lang Go --sort xp_desc
  codequest tasks --recommended
  codequest play 3 --practice`)
}

func loadConfig() (*config.LocalConfig, error) {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newClient builds a backend client with the configured guards
func newClient(cfg *config.LocalConfig) *client.Client {
	res := client.DefaultResilienceConfig()
	res.EnableCircuitBreaker = cfg.Backend.CircuitBreaker
	res.EnableRetry = cfg.Backend.Retry
	res.EnableBulkhead = cfg.Backend.Bulkhead
	res.EnableRateLimit = cfg.Backend.RateLimit

	return client.New(client.Config{
		BaseURL:    cfg.Backend.URL,
		Timeout:    cfg.Backend.Timeout(),
		Resilience: &res,
	})
}

// newScorer ranks locally when the backend's ranking is unavailable.
// A zero seed varies the tie-breaking between runs.
func newScorer(cfg *config.LocalConfig) *recommend.Scorer {
	seed := uint64(cfg.Recommend.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return recommend.NewScorer(recommend.SeededJitter(seed))
}

// renderProgressBar draws a bar for a 0-100 percentage
func renderProgressBar(percent float64, width int) string {
	filled := min(max(int(percent/100*float64(width)), 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
