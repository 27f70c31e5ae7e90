package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/M3kH/gigi-sub006/internal/adapter/gitea"
	"github.com/M3kH/gigi-sub006/internal/adapter/realtime"
	"github.com/M3kH/gigi-sub006/internal/adapter/tui"
	"github.com/M3kH/gigi-sub006/internal/domain"
	"github.com/M3kH/gigi-sub006/internal/infra/config"
	"github.com/M3kH/gigi-sub006/internal/infra/logger"
	"github.com/M3kH/gigi-sub006/internal/infra/tracer"
	"github.com/M3kH/gigi-sub006/internal/usecase/chat"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`gigi - realtime terminal client for the agent backend

USAGE:
    gigi [FLAGS]

FLAGS:
    -h, --help          Show this help message
    --config PATH       Config file path (default: ./config.yaml)
    --url URL           WebSocket server URL (overrides config)
    --headless          Connect and log events without the TUI
    --repo OWNER/NAME   Print repository details and open issues, then exit

CONFIGURATION:
    Config file: ./config.yaml
    Environment: GIGI_* variables override config

EXAMPLES:
    gigi                          # Interactive chat with config.yaml
    gigi --url ws://host:3000/ws  # Point at another backend
    gigi --headless               # Useful for smoke-testing a deployment
    gigi --repo myorg/myapp       # One-shot Gitea lookup`)
}

// cliFlags holds the command-line overrides.
type cliFlags struct {
	ConfigPath string
	URL        string
	Headless   bool
	Repo       string
}

func parseFlags() cliFlags {
	flags := cliFlags{ConfigPath: "config.yaml"}
	for i := 1; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--config" && i+1 < len(os.Args):
			flags.ConfigPath = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--config="):
			flags.ConfigPath = strings.TrimPrefix(os.Args[i], "--config=")
		case os.Args[i] == "--url" && i+1 < len(os.Args):
			flags.URL = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--url="):
			flags.URL = strings.TrimPrefix(os.Args[i], "--url=")
		case os.Args[i] == "--headless":
			flags.Headless = true
		case os.Args[i] == "--repo" && i+1 < len(os.Args):
			flags.Repo = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--repo="):
			flags.Repo = strings.TrimPrefix(os.Args[i], "--repo=")
		}
	}
	return flags
}

func run() error {
	// 1. Config
	flags := parseFlags()
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if flags.URL != "" {
		cfg.Server.URL = flags.URL
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. One-shot Gitea lookup exits before any connection is made.
	if flags.Repo != "" {
		return runRepoLookup(ctx, cfg, log, flags.Repo)
	}

	// 4. Realtime connection
	conn := realtime.NewConn(realtime.Config{
		URL:               cfg.Server.URL,
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		DialTimeout:       cfg.Server.DialTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}, realtime.TokenDialer(cfg.Server.Token), log)
	defer conn.Close()

	dispatch := chat.NewDispatcher(conn, log)

	// 5. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn.Connect()

	if flags.Headless {
		return runHeadless(ctx, conn, log)
	}
	return tui.Run(ctx, conn, dispatch, log)
}

// runHeadless logs every server event until the context is canceled. It
// exists so a deployment can be smoke-tested over SSH without a TTY.
func runHeadless(ctx context.Context, conn *realtime.Conn, log *slog.Logger) error {
	unsubMsg := conn.OnMessage(func(msg domain.ServerMessage) {
		log.Info("server message", "type", fmt.Sprintf("%T", msg))
	})
	defer unsubMsg()

	unsubState := conn.OnStateChange(func(state realtime.State) {
		log.Info("connection state", "state", state.String())
	})
	defer unsubState()

	<-ctx.Done()
	return nil
}

// runRepoLookup fetches a repository and its open issues from Gitea and
// prints a short report.
func runRepoLookup(ctx context.Context, cfg *config.Config, log *slog.Logger, repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return fmt.Errorf("invalid --repo value %q, want OWNER/NAME", repo)
	}

	client, err := gitea.NewClient(gitea.Options{
		BaseURL:        cfg.Gitea.BaseURL,
		Token:          cfg.Gitea.Token,
		RequestsPerMin: cfg.Gitea.RequestsPerMin,
		Burst:          cfg.Gitea.Burst,
		CBMaxFailures:  cfg.Gitea.CBMaxFailures,
		CBTimeout:      cfg.Gitea.CBTimeout,
		CBInterval:     cfg.Gitea.CBInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("gitea: %w", err)
	}

	repository, err := client.GetRepository(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("get repository: %w", err)
	}
	fmt.Printf("%s\n", repository.FullName)
	if repository.Description != "" {
		fmt.Printf("  %s\n", repository.Description)
	}
	fmt.Printf("  stars: %d  forks: %d  open issues: %d\n",
		repository.Stars, repository.Forks, repository.OpenIssues)

	issues, err := client.ListIssues(ctx, owner, name, gitea.ListOptions{State: "open", Limit: 10})
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}
	for _, issue := range issues {
		fmt.Printf("  #%d %s\n", issue.Number, issue.Title)
	}
	return nil
}
