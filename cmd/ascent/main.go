package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexanderramin/ascent/internal/cli"
	"github.com/alexanderramin/ascent/internal/config"
	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/alexanderramin/ascent/internal/service"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configFlag picks --config out of args before cobra sees them, since the
// services have to exist before the command tree is built.
func configFlag(args []string) string {
	var own []string
	for i, a := range args {
		if a == "--" {
			break
		}
		if strings.HasPrefix(a, "--config=") {
			own = append(own, a)
		} else if a == "--config" && i+1 < len(args) {
			own = append(own, a, args[i+1])
		}
	}

	fs := pflag.NewFlagSet("ascent", pflag.ContinueOnError)
	fs.Usage = func() {}
	path := fs.String("config", os.Getenv(config.EnvPrefix+"_CONFIG"), "")
	_ = fs.Parse(own)
	return *path
}

func run(args []string) error {
	configFile := configFlag(args)
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	nodeRepo := repository.NewSQLiteNodeRepo(database)
	taskRepo := repository.NewSQLiteTaskRepo(database)
	listRepo := repository.NewSQLiteTaskListRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)
	clock := timeutil.SystemClock{}

	hierarchy := service.NewHierarchyStore(cfg.Owner, nodeRepo, uow,
		service.WithStoreClock(clock),
		service.WithStoreObserver(service.NewLogUseCaseObserver(logger)),
	)
	defer hierarchy.Close()

	worker := service.NewPromotionWorker(nodeRepo, taskRepo, uow,
		service.WithWorkerClock(clock),
		service.WithWorkerLogger(logger),
		service.WithDeleteAttempts(cfg.Worker.DeleteAttempts),
	)

	app := &cli.App{
		Owner:       cfg.Owner,
		Hierarchy:   hierarchy,
		Worker:      worker,
		Tasks:       taskRepo,
		Lists:       listRepo,
		Clock:       clock,
		Logger:      logger,
		Schedule:    cfg.Worker.Schedule,
		MetricsAddr: cfg.Metrics.Addr,
		Plain:       !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}

	rootCmd := cli.NewRootCmd(app)
	rootCmd.PersistentFlags().String("config", configFile, "Config file (default ./.ascent.yaml)")
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}
