package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ldi/tally/internal/db"
	"github.com/ldi/tally/internal/dispatch"
	"github.com/ldi/tally/internal/embedding"
	"github.com/ldi/tally/internal/logging"
	"github.com/ldi/tally/internal/mcp"
	"github.com/ldi/tally/internal/scheduler"
	"github.com/ldi/tally/internal/service"
	"github.com/ldi/tally/internal/settings"
	"github.com/ldi/tally/pkg/models"
)

var (
	dbPath       string
	settingsPath string
)

func main() {
	// Optional .env; absence is fine.
	_ = godotenv.Load()
	logging.Init()

	flag.StringVar(&dbPath, "db-path", envOr("TALLY_DB_PATH", ".tally/tasks.db"), "Path to database file")
	flag.StringVar(&settingsPath, "settings-path", envOr("TALLY_SETTINGS_PATH", ".tally/settings.json"), "Path to settings file")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "init":
		err = runInit(args)
	case "mcp":
		err = runMCP(args)
	case "add":
		err = runAdd(args)
	case "list":
		err = runList(args)
	case "search":
		err = runSearch(args)
	case "sync":
		err = runSync(args)
	case "history":
		err = runHistory(args)
	case "automate":
		err = runAutomate(args)
	case "serve":
		err = runServe(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: tally [flags] <command>")
	fmt.Println("Commands: init, mcp, add, list, search, sync, history, automate, serve")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newEmbedder() *embedding.LocalClient {
	var opts []embedding.LocalClientOption
	if url := os.Getenv("TALLY_EMBED_URL"); url != "" {
		opts = append(opts, embedding.WithBaseURL(url))
	}
	if model := os.Getenv("TALLY_EMBED_MODEL"); model != "" {
		opts = append(opts, embedding.WithModel(model))
	}
	return embedding.NewLocalClient(opts...)
}

// openService wires store, embedder, settings and webhook, and warms the
// similarity index from the live task set.
func openService(ctx context.Context) (*service.TaskService, *db.DB, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}

	cfg, err := settings.Load(settingsPath)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	svc := service.New(database, newEmbedder(),
		service.WithSettings(cfg),
		service.WithWebhook(dispatch.NewClient(cfg.WebhookURL)),
	)

	if err := svc.ReloadIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: similarity index not loaded: %v\n", err)
	}
	return svc, database, nil
}

func runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	tallyDir := filepath.Join(targetDir, ".tally")
	if err := os.MkdirAll(tallyDir, 0755); err != nil {
		return fmt.Errorf("failed to create .tally directory: %w", err)
	}
	fmt.Println("✓ Created .tally/ directory")

	finalDBPath := dbPath
	if dbPath == ".tally/tasks.db" {
		finalDBPath = filepath.Join(tallyDir, "tasks.db")
	}

	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Printf("✓ Initialized database at %s\n", finalDBPath)

	finalSettingsPath := settingsPath
	if settingsPath == ".tally/settings.json" {
		finalSettingsPath = filepath.Join(tallyDir, "settings.json")
	}
	if _, err := os.Stat(finalSettingsPath); os.IsNotExist(err) {
		if err := settings.Default().Save(finalSettingsPath); err != nil {
			return fmt.Errorf("failed to write default settings: %w", err)
		}
		fmt.Printf("✓ Wrote default settings to %s\n", finalSettingsPath)
	}

	fmt.Println("✓ Tally initialized successfully")
	return nil
}

func runMCP(args []string) error {
	ctx := context.Background()
	svc, database, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	return mcp.Serve(mcp.NewServer(svc))
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "Task name (required)")
	description := fs.String("description", "", "Task description")
	startDate := fs.String("start", "", "Start date YYYY-MM-DD (required)")
	dueDate := fs.String("due", "", "Due date YYYY-MM-DD (required)")
	timeSpent := fs.String("time-spent", "", "Time spent HH:MM")
	functionalArea := fs.String("area", "", "Functional area")
	assignment := fs.String("assignment", "", "Assignment")
	taskType := fs.String("type", "", "Task type")
	completed := fs.Bool("completed", false, "Mark as completed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	status := models.TaskStatusPending
	if *completed {
		status = models.TaskStatusCompleted
	}

	ctx := context.Background()
	svc, database, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	id, err := svc.AddTask(ctx, &models.Task{
		Name:           *name,
		Description:    *description,
		StartDate:      *startDate,
		DueDate:        *dueDate,
		TimeSpent:      *timeSpent,
		FunctionalArea: *functionalArea,
		Assignment:     *assignment,
		TaskType:       *taskType,
		Status:         status,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Task added: %s\n", id)
	return nil
}

func runList(args []string) error {
	ctx := context.Background()
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Init(ctx); err != nil {
		return err
	}

	tasks, err := database.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	for _, t := range tasks {
		fmt.Printf("%s  %-30s %s → %s  [%s]\n", t.ID, t.Name, t.StartDate, t.DueDate, t.Status)
	}
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	k := fs.Int("k", 5, "Maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("search requires a query")
	}

	ctx := context.Background()
	svc, database, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	results, err := svc.SearchSimilar(ctx, fs.Arg(0), *k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for i, m := range results {
		fmt.Printf("%d. %s  %s (%s → %s)\n", i+1, m.TaskID, m.Snapshot.TaskName, m.Snapshot.StartDate, m.Snapshot.DueDate)
	}
	return nil
}

func runSync(args []string) error {
	ctx := context.Background()
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Init(ctx); err != nil {
		return err
	}

	result, err := service.Resolve(ctx, database, time.Now())
	if err != nil {
		return err
	}
	if result.Date.IsZero() {
		fmt.Println("No tasks found in the database.")
		return nil
	}
	if result.Fallback {
		fmt.Printf("No tasks found for today. Displaying tasks from %s.\n", result.Date.Format(models.DateLayout))
	}

	for _, row := range result.Rows {
		fmt.Printf("%s  %s (%s)\n", row.TaskID, row.TaskName, row.Timestamp)
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	export := fs.String("export", "", "Export the full version log to a JSONL file")
	importPath := fs.String("import", "", "Import version records from a JSONL file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Init(ctx); err != nil {
		return err
	}

	if *export != "" {
		if err := database.ExportHistory(ctx, *export); err != nil {
			return err
		}
		fmt.Printf("✓ History exported to %s\n", *export)
		return nil
	}

	if *importPath != "" {
		if err := database.ImportHistory(ctx, *importPath); err != nil {
			return err
		}
		fmt.Printf("✓ History imported from %s\n", *importPath)
		return nil
	}

	if fs.NArg() == 0 {
		return fmt.Errorf("history requires a task id (or -export/-import)")
	}

	versions, err := database.AllVersionsFor(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("No history for that task.")
		return nil
	}

	for _, v := range versions {
		fmt.Printf("Version Date: %s\nDetails: %s\n\n", v.Timestamp, v.Data)
	}
	return nil
}

func runAutomate(args []string) error {
	ctx := context.Background()
	svc, database, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := svc.Automate(ctx); err != nil {
		return err
	}
	fmt.Println("✓ Report dispatched")
	return nil
}

// runServe keeps the process alive with the daily automation scheduled at
// the configured time.
func runServe(args []string) error {
	ctx := context.Background()
	svc, database, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	cfg, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	err = sched.ScheduleDaily(cfg.ScheduleTime, func() {
		if err := svc.Automate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Automation failed: %v\n", err)
		}
	})
	if err != nil {
		return err
	}

	sched.Start()
	fmt.Printf("✓ Daily automation scheduled at %s\n", cfg.ScheduleTime)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	return sched.Shutdown()
}
