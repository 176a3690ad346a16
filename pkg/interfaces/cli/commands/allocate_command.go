package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/infrastructure/codec"
	"github.com/vsinha/batchalloc/pkg/infrastructure/config"
	"github.com/vsinha/batchalloc/pkg/interfaces/cli/output"
	"go.uber.org/zap"
)

// Config holds configuration for the allocate command
type Config struct {
	ScenarioDir string
	RecipeID    string
	Planned     string
	Unit        string
	PlanIn      string
	PlanOut     string
	DryRun      bool
	OutputDir   string
	Format      string
	Verbose     bool
	Help        bool
	Out         io.Writer // defaults to os.Stdout
}

// AllocateCommand starts one run, allocates stock for it and reports fulfillment
type AllocateCommand struct {
	config Config
	env    *config.Config
	logger *zap.Logger
}

// NewAllocateCommand creates a new allocate command with the given configuration
func NewAllocateCommand(cfg Config, env *config.Config, logger *zap.Logger) *AllocateCommand {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if env == nil {
		env = config.LoadEnv()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocateCommand{config: cfg, env: env, logger: logger}
}

// Execute runs the allocate command
func (c *AllocateCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	planned, err := c.validateInputs()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	e, err := newEngine(ctx, c.config.ScenarioDir, c.env, c.logger)
	if err != nil {
		return err
	}
	defer e.Close()

	startTime := time.Now()
	run, err := e.service.StartRun(ctx, c.config.RecipeID, planned, c.config.Unit)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	drafts, err := c.loadDrafts(ctx, e, run.ID)
	if err != nil {
		return err
	}

	if c.config.PlanOut != "" {
		if err := writePlan(c.config.PlanOut, run.ID, drafts); err != nil {
			return err
		}
		c.logger.Info("plan written", zap.String("path", c.config.PlanOut), zap.Int("drafts", len(drafts)))
	}

	result := &output.Result{Run: run, Drafts: drafts}
	if !c.config.DryRun {
		bulk, err := e.service.BulkCommit(ctx, run.ID, drafts)
		if err != nil {
			return fmt.Errorf("failed to commit plan: %w", err)
		}
		result.Bulk = bulk
	}

	if result.Report, err = e.service.Report(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if result.SubRecipes, err = e.service.SubRecipeRequests(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to list sub-recipe requests: %w", err)
	}

	outputConfig := output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Elapsed:   time.Since(startTime),
		Writer:    c.config.Out,
	}
	if err := output.Generate(result, outputConfig); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	return nil
}

// loadDrafts reads -plan-in, or suggests a FIFO plan when none is given
func (c *AllocateCommand) loadDrafts(ctx context.Context, e *engine, runID string) ([]entities.AllocationDraft, error) {
	if c.config.PlanIn == "" {
		drafts, err := e.service.SuggestPlan(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest plan: %w", err)
		}
		return drafts, nil
	}

	file, err := os.Open(c.config.PlanIn)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan file: %w", err)
	}
	defer file.Close()

	planRunID, drafts, err := codec.ReadDrafts(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", c.config.PlanIn, err)
	}
	c.logger.Debug("plan loaded",
		zap.String("path", c.config.PlanIn),
		zap.String("planned_for", planRunID),
		zap.String("run_id", runID),
		zap.Int("drafts", len(drafts)),
	)
	return drafts, nil
}

func writePlan(path, runID string, drafts []entities.AllocationDraft) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plan file: %w", err)
	}
	if err := codec.WriteDrafts(file, runID, drafts); err != nil {
		file.Close()
		return fmt.Errorf("failed to write plan file %s: %w", path, err)
	}
	return file.Close()
}

// validateInputs validates the command configuration and parses the planned output
func (c *AllocateCommand) validateInputs() (decimal.Decimal, error) {
	if c.config.ScenarioDir == "" {
		return decimal.Zero, fmt.Errorf("must specify -scenario directory")
	}
	if _, err := os.Stat(c.config.ScenarioDir); err != nil {
		return decimal.Zero, fmt.Errorf("scenario directory not found: %s", c.config.ScenarioDir)
	}
	if c.config.RecipeID == "" {
		return decimal.Zero, fmt.Errorf("must specify -recipe")
	}
	if c.config.Unit == "" {
		return decimal.Zero, fmt.Errorf("must specify -unit")
	}
	planned, err := decimal.NewFromString(c.config.Planned)
	if err != nil || !planned.IsPositive() {
		return decimal.Zero, fmt.Errorf("-planned must be a positive number, got %q", c.config.Planned)
	}
	return planned, nil
}

// showHelp displays the help message
func (c *AllocateCommand) showHelp() {
	fmt.Fprint(c.config.Out, `batchalloc - allocate stock lots to a recipe production run

USAGE:
    batchalloc -scenario <dir> -recipe <id> -planned <qty> -unit <unit> [options]
    batchalloc session -scenario <dir>

OPTIONS:
    -scenario <dir>     Path to scenario directory containing CSV files
    -recipe <id>        Recipe to start a production run for
    -planned <qty>      Planned output quantity
    -unit <unit>        Unit of the planned output
    -plan-in <file>     Commit drafts from a msgpack plan file instead of the FIFO suggestion
    -plan-out <file>    Write the drafts about to be committed to a msgpack plan file
    -dry-run            Suggest or read drafts without committing them
    -store <driver>     Lot store: memory or sqlite (default from STORE_DRIVER)
    -output <dir>       Output directory for results (optional)
    -format <fmt>       Output format: text, json, csv (default: text)
    -verbose            Enable verbose output
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── recipes.csv        # Recipe headers and yields
    ├── recipe_lines.csv   # Ingredient and sub-recipe lines
    ├── items.csv          # Inventory items and their ingredient mapping
    ├── lots.csv           # Stock lots
    └── conversions.csv    # Item-specific unit conversions (optional)

CSV FILE FORMATS:

recipes.csv:
    recipe_id,name,yield_quantity,yield_unit,allergens
    BREAD,Country loaf,10,kg,gluten

recipe_lines.csv:
    recipe_id,line_id,ingredient,sub_recipe_id,quantity,unit,allergens
    BREAD,L1,flour,,2,kg,gluten
    BREAD,L3,,STARTER,1,kg,

items.csv:
    item_id,name,ingredient,canonical_unit
    ITEM-FLOUR,Wheat flour T65,flour,kg

lots.csv:
    lot_id,item_id,remaining_quantity,unit,allergens,source_run_id,created_at
    LOT-F1,ITEM-FLOUR,25,kg,gluten;sesame,,2025-01-05

conversions.csv:
    item_id,from_unit,to_unit,factor
    ITEM-MILK,l,kg,1.03

ENVIRONMENT:
    APP_ENV, LOGGER_LEVEL, LOGGER_ENCODING, STORE_DRIVER, SQLITE_PATH,
    REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, LOT_LOCK_TTL (read from .env when present)

EXAMPLES:
    # Suggest and commit a FIFO plan for 15 kg of bread
    batchalloc -scenario example/bakery -recipe BREAD -planned 15 -unit kg

    # Save the suggestion for review, then commit it
    batchalloc -scenario example/bakery -recipe BREAD -planned 15 -unit kg -dry-run -plan-out bread.plan
    batchalloc -scenario example/bakery -recipe BREAD -planned 15 -unit kg -plan-in bread.plan

    # JSON report against a sqlite lot store
    SQLITE_PATH=lots.db batchalloc -scenario example/bakery -recipe BREAD -planned 15 -unit kg -store sqlite -format json
`)
}
