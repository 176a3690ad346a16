package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/vsinha/batchalloc/pkg/infrastructure/config"
	"github.com/vsinha/batchalloc/pkg/infrastructure/logging"
	"github.com/vsinha/batchalloc/pkg/interfaces/cli/commands"
	"go.uber.org/zap"
)

type executor interface {
	Execute(ctx context.Context) error
}

func main() {
	_ = godotenv.Load() // Load .env file if it exists
	env := config.LoadEnv()

	args := os.Args[1:]
	session := len(args) > 0 && args[0] == "session"
	if session {
		args = args[1:]
	}

	fs := flag.NewFlagSet("batchalloc", flag.ExitOnError)
	var (
		scenarioDir = fs.String("scenario", "", "Path to scenario directory containing CSV files")
		recipeID    = fs.String("recipe", "", "Recipe to start a production run for")
		planned     = fs.String("planned", "", "Planned output quantity")
		unit        = fs.String("unit", "", "Unit of the planned output")
		planIn      = fs.String("plan-in", "", "Commit drafts from a msgpack plan file")
		planOut     = fs.String("plan-out", "", "Write the drafts to a msgpack plan file")
		dryRun      = fs.Bool("dry-run", false, "Suggest or read drafts without committing them")
		store       = fs.String("store", env.Store.Driver, "Lot store: memory or sqlite")
		outputDir   = fs.String("output", "", "Output directory for results (optional)")
		format      = fs.String("format", "text", "Output format: text, json, csv")
		verbose     = fs.Bool("verbose", false, "Enable verbose output")
		help        = fs.Bool("help", false, "Show help message")
	)
	_ = fs.Parse(args)

	env.Store.Driver = *store
	if *verbose {
		env.Logger.Level = "debug"
	}

	logger, err := logging.New(env.App.AppEnv, env.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cmd executor
	if session {
		cmd = commands.NewSessionCommand(commands.SessionConfig{
			ScenarioDir: *scenarioDir,
			Help:        *help,
		}, env, logger)
	} else {
		cmd = commands.NewAllocateCommand(commands.Config{
			ScenarioDir: *scenarioDir,
			RecipeID:    *recipeID,
			Planned:     *planned,
			Unit:        *unit,
			PlanIn:      *planIn,
			PlanOut:     *planOut,
			DryRun:      *dryRun,
			OutputDir:   *outputDir,
			Format:      *format,
			Verbose:     *verbose,
			Help:        *help,
		}, env, logger)
	}

	if err := cmd.Execute(context.Background()); err != nil {
		logger.Debug("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
