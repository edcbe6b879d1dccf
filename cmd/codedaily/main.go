package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/codedaily/codedaily/internal/api"
	"github.com/codedaily/codedaily/internal/auth"
	"github.com/codedaily/codedaily/internal/config"
	"github.com/codedaily/codedaily/internal/database"
	"github.com/codedaily/codedaily/internal/github"
	"github.com/codedaily/codedaily/internal/ideasfile"
	"github.com/codedaily/codedaily/internal/jobs"
	"github.com/codedaily/codedaily/internal/llm"
	"github.com/codedaily/codedaily/internal/quest"
	"github.com/codedaily/codedaily/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: codedaily <command>\n\nCommands:\n  serve    Start the server\n  migrate  Run database migrations\n  status   Show streak, stats and quests\n  sync     Run quest ingestion once\n")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "migrate":
		cmdMigrate(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "sync":
		cmdSync(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func setupLogging() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

type services struct {
	db      database.DB
	tracker *service.Tracker
	syncer  *service.Syncer
	quests  *quest.Engine
	llm     *llm.Client
}

func buildServices(cfg *config.Config) (*services, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(cfg.GitHub.Token, cfg.GitHub.Username)
	engine := quest.NewEngine(db)
	syncer := service.NewSyncer(db, gh, engine, cfg.Quests.ScanPath)
	if cfg.Quests.IdeasPath != "" {
		syncer = syncer.WithIdeasFile(ideasfile.New(cfg.Quests.IdeasPath))
	}
	return &services{
		db:      db,
		tracker: service.NewTracker(db, gh, engine),
		syncer:  syncer,
		quests:  engine,
		llm:     llm.NewClient(cfg.Anthropic.APIKey, db),
	}, nil
}

func cmdServe(args []string) {
	setupLogging()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServe(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	traceShutdown, err := initTracing(context.Background())
	if err != nil {
		slog.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traceShutdown(ctx); err != nil {
			slog.Error("shutdown tracing", "error", err)
		}
	}()

	svcs, err := buildServices(cfg)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer svcs.db.Close()

	// Auto-migrate on startup
	if err := svcs.db.Migrate(context.Background()); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}

	tokenDur, err := cfg.TokenDuration()
	if err != nil {
		slog.Error("invalid token duration", "error", err)
		os.Exit(1)
	}
	authSvc := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.PasswordHash, tokenDur)
	server := api.NewServer(svcs.db, authSvc, svcs.tracker, svcs.syncer, svcs.quests, svcs.llm)

	interval, err := cfg.RefreshInterval()
	if err != nil {
		slog.Error("invalid refresh interval", "error", err)
		os.Exit(1)
	}
	refresher := jobs.NewRefresher(func(ctx context.Context) error {
		if _, err := svcs.tracker.Refresh(ctx); err != nil {
			return err
		}
		_, err := svcs.syncer.SyncTodos(ctx)
		return err
	}, jobs.RefresherOptions{Interval: interval})
	if err := refresher.Start(context.Background()); err != nil {
		slog.Error("start refresher", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt)

	go func() {
		slog.Info("codedaily listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := refresher.Stop(ctx); err != nil {
		slog.Error("stop refresher", "error", err)
	}
	httpServer.Shutdown(ctx)
}

func cmdMigrate(args []string) {
	setupLogging()

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	db, err := openDB(cfg)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations complete")
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	refresh := fs.Bool("refresh", false, "fetch fresh activity from GitHub first")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer svcs.db.Close()

	ctx := context.Background()
	if err := svcs.db.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	if *refresh {
		if _, err := svcs.tracker.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "refresh: %v\n", err)
			os.Exit(1)
		}
	}

	dash, err := svcs.tracker.BuildDashboard(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "build dashboard: %v\n", err)
		os.Exit(1)
	}
	printDashboard(dash)
}

func cmdSync(args []string) {
	setupLogging()

	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	todos := fs.Bool("todos", false, "sync TODO comments from the scan path")
	issues := fs.Bool("issues", false, "sync assigned GitHub issues")
	ideas := fs.Bool("ideas", false, "sync the markdown ideas backlog")
	discover := fs.Bool("discover", false, "discover good-first-issues in starred repos")
	fs.Parse(args)

	if !*todos && !*issues && !*ideas && !*discover {
		*todos, *issues, *ideas = true, true, true
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer svcs.db.Close()

	ctx := context.Background()
	if err := svcs.db.Migrate(ctx); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}

	failed := false
	if *todos {
		if res, err := svcs.syncer.SyncTodos(ctx); err != nil {
			slog.Error("todo sync failed", "error", err)
			failed = true
		} else {
			fmt.Printf("todos: %d added, %d skipped\n", res.Added, res.Skipped)
		}
	}
	if *issues {
		if res, err := svcs.syncer.SyncIssues(ctx); err != nil {
			slog.Error("issue sync failed", "error", err)
			failed = true
		} else {
			fmt.Printf("issues: %d added, %d skipped\n", res.Added, res.Skipped)
		}
	}
	if *ideas {
		if res, err := svcs.syncer.SyncIdeas(ctx); err != nil {
			slog.Error("ideas sync failed", "error", err)
			failed = true
		} else {
			fmt.Printf("ideas: %d imported\n", res.Added)
		}
	}
	if *discover {
		if res, err := svcs.syncer.Discover(ctx); err != nil {
			slog.Error("discovery failed", "error", err)
			failed = true
		} else {
			fmt.Printf("discover: %d added, %d skipped\n", res.Added, res.Skipped)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (database.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return database.OpenSQLite(cfg.Database.DSN)
	case "postgres":
		return database.OpenPostgres(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

var levelGlyphs = []string{"░", "▪", "▫", "▣", "█"}

func printDashboard(dash *service.Dashboard) {
	fmt.Printf("== codedaily: %s ==\n\n", dash.Username)

	flame := " "
	if dash.Streak.StreakActive {
		flame = "🔥"
	}
	fmt.Printf("Streak: %d days %s (longest: %d)\n", dash.Streak.CurrentStreak, flame, dash.Streak.LongestStreak)
	if dash.Streak.LastCommitDate != "" {
		fmt.Printf("Last commit: %s\n", dash.Streak.LastCommitDate)
	}

	goalMark := "✗"
	if dash.GoalMet {
		goalMark = "✓"
	}
	fmt.Printf("Today: %d commits (goal %d) %s\n\n", dash.Stats.CommitsToday, dash.DailyGoal, goalMark)

	fmt.Printf("This week: %d  This month: %d  Last 7d: %d  Last 30d: %d  Total: %d\n\n",
		dash.Stats.CommitsThisWeek, dash.Stats.CommitsThisMonth,
		dash.Stats.CommitsLast7Days, dash.Stats.CommitsLast30Days, dash.Stats.TotalCommits)

	fmt.Println("Activity:")
	var row strings.Builder
	for i, day := range dash.History.Days {
		row.WriteString(levelGlyphs[day.Level])
		if (i+1)%28 == 0 {
			fmt.Println(row.String())
			row.Reset()
		}
	}
	if row.Len() > 0 {
		fmt.Println(row.String())
	}
	fmt.Println()

	unlocked := 0
	for _, a := range dash.Achievements {
		if a.Unlocked {
			unlocked++
			fmt.Printf("  %s %s - %s\n", a.Emoji, a.Name, a.Description)
		}
	}
	fmt.Printf("Achievements: %d/%d\n\n", unlocked, len(dash.Achievements))

	if len(dash.Quests) > 0 {
		fmt.Println("Up next:")
		for _, q := range dash.Quests {
			fmt.Printf("  [%d] %s (%s, score %d)\n", q.ID, q.Title, q.Source, q.PriorityScore)
		}
	}
}
