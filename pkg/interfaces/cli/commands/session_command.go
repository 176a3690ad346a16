package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/application/services"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/infrastructure/config"
	"github.com/vsinha/batchalloc/pkg/interfaces/cli/output"
	"go.uber.org/zap"
)

// errQuit ends the interactive session
var errQuit = errors.New("quit")

// SessionConfig holds configuration for the interactive session command
type SessionConfig struct {
	ScenarioDir string
	Help        bool
	In          io.Reader // defaults to os.Stdin
	Out         io.Writer // defaults to os.Stdout
}

// SessionCommand runs an interactive allocation session over one scenario.
// Commands act on the current run, selected by start or use.
type SessionCommand struct {
	config  SessionConfig
	env     *config.Config
	logger  *zap.Logger
	engine  *engine
	scanner *bufio.Scanner
	out     io.Writer
	runID   string
}

// NewSessionCommand creates a new session command with the given configuration
func NewSessionCommand(cfg SessionConfig, env *config.Config, logger *zap.Logger) *SessionCommand {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if env == nil {
		env = config.LoadEnv()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCommand{
		config:  cfg,
		env:     env,
		logger:  logger,
		scanner: bufio.NewScanner(cfg.In),
		out:     cfg.Out,
	}
}

// Execute runs the interactive session until quit or end of input
func (c *SessionCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.printHelp()
		return nil
	}
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("validation error: must specify -scenario directory")
	}

	e, err := newEngine(ctx, c.config.ScenarioDir, c.env, c.logger)
	if err != nil {
		return err
	}
	defer e.Close()
	c.engine = e

	return c.runInteractiveSession(ctx)
}

func (c *SessionCommand) runInteractiveSession(ctx context.Context) error {
	fmt.Fprintln(c.out, "=== Allocation Session ===")
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	fmt.Fprintln(c.out)

	for {
		fmt.Fprint(c.out, "batchalloc> ")
		if !c.scanner.Scan() {
			break
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		err := c.processCommand(ctx, line)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		fmt.Fprintln(c.out)
	}

	return c.scanner.Err()
}

func (c *SessionCommand) processCommand(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "help", "h":
		c.printInteractiveHelp()
	case "start":
		return c.handleStart(ctx, args)
	case "use":
		return c.handleUse(ctx, args)
	case "rescale":
		return c.handleRescale(ctx, args)
	case "status":
		return c.handleStatus(ctx)
	case "candidates":
		return c.handleCandidates(ctx, args)
	case "commit":
		return c.handleCommit(ctx, args)
	case "reverse":
		return c.handleReverse(ctx, args)
	case "suggest":
		return c.handleSuggest(ctx)
	case "allocate-all":
		return c.handleAllocateAll(ctx)
	case "restock":
		return c.handleRestock(ctx, args)
	case "output":
		return c.handleOutput(ctx, args)
	case "allergens":
		return c.handleAllergens(ctx)
	case "events":
		return c.handleShowEvents(args)
	case "quit", "q", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", command)
	}

	return nil
}

func (c *SessionCommand) currentRun() (string, error) {
	if c.runID == "" {
		return "", fmt.Errorf("no current run (use 'start <recipe> <qty> <unit>')")
	}
	return c.runID, nil
}

func (c *SessionCommand) handleStart(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: start <recipe> <qty> <unit>")
	}
	planned, err := parseQuantity(args[1])
	if err != nil {
		return err
	}

	run, err := c.engine.service.StartRun(ctx, args[0], planned, args[2])
	if err != nil {
		return err
	}
	c.runID = run.ID
	fmt.Fprintf(c.out, "Started run %s: %s %s of %s\n", run.ID, planned.String(), run.OutputUnit, run.RecipeID)
	return nil
}

func (c *SessionCommand) handleUse(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: use <run-id>")
	}
	if _, err := c.engine.service.Plan(ctx, args[0]); err != nil {
		return err
	}
	c.runID = args[0]
	fmt.Fprintf(c.out, "Current run: %s\n", c.runID)
	return nil
}

func (c *SessionCommand) handleRescale(ctx context.Context, args []string) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: rescale <qty> <unit>")
	}
	planned, err := parseQuantity(args[0])
	if err != nil {
		return err
	}

	if _, err := c.engine.service.UpdatePlannedOutput(ctx, runID, planned, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Run %s now plans %s %s\n", runID, planned.String(), args[1])
	return nil
}

func (c *SessionCommand) handleStatus(ctx context.Context) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	report, err := c.engine.service.Report(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "=== Run %s (%s) ===\n", runID, report.RecipeID)
	fmt.Fprintf(c.out, "Completion: %.1f%% (%d of %d trackable lines)\n\n",
		report.Completion*100, report.FulfilledLines, report.TrackableLines)
	output.WriteLines(c.out, report.Lines)
	return nil
}

func (c *SessionCommand) handleCandidates(ctx context.Context, args []string) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: candidates <line> [no-rework]")
	}
	var opts []services.CandidateOption
	if len(args) > 1 && args[1] == "no-rework" {
		opts = append(opts, services.WithoutRework())
	}

	candidates, err := c.engine.service.Candidates(ctx, runID, args[0], opts...)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintf(c.out, "No lots available for line %s\n", args[0])
		return nil
	}

	fmt.Fprintf(c.out, "%-14s %-12s %-6s %-12s %-8s %s\n", "Lot", "Remaining", "Unit", "Created", "Rework", "Allergens")
	for _, candidate := range candidates {
		lot := candidate.Lot
		fmt.Fprintf(c.out, "%-14s %-12s %-6s %-12s %-8t %v\n",
			lot.ID,
			lot.RemainingQuantity.String(),
			lot.Unit,
			lot.CreatedAt.Format("2006-01-02"),
			candidate.IsRework,
			lot.Allergens)
	}
	return nil
}

func (c *SessionCommand) handleCommit(ctx context.Context, args []string) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	if len(args) < 4 {
		return fmt.Errorf("usage: commit <line|-> <lot> <qty> <unit>")
	}
	quantity, err := parseQuantity(args[2])
	if err != nil {
		return err
	}
	lineID := args[0]
	if lineID == "-" {
		lineID = ""
	}

	allocation, err := c.engine.service.Commit(ctx, runID, entities.AllocationDraft{
		LineID:   lineID,
		LotID:    args[1],
		Quantity: quantity,
		Unit:     args[3],
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Committed %s: %s %s from lot %s (%s %s debited)\n",
		allocation.ID,
		allocation.Quantity.String(),
		allocation.Unit,
		allocation.LotID,
		allocation.LotQuantity.String(),
		c.lotUnit(ctx, allocation.LotID))
	return nil
}

func (c *SessionCommand) handleReverse(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: reverse <allocation-id>")
	}
	allocation, err := c.engine.service.Reverse(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Reversed %s: %s %s returned to lot %s\n",
		allocation.ID, allocation.LotQuantity.String(), c.lotUnit(ctx, allocation.LotID), allocation.LotID)
	return nil
}

func (c *SessionCommand) handleSuggest(ctx context.Context) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	drafts, err := c.engine.service.SuggestPlan(ctx, runID)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Fprintln(c.out, "Nothing to suggest")
		return nil
	}
	for _, d := range drafts {
		fmt.Fprintf(c.out, "  %-6s %-14s %s %s\n", d.LineID, d.LotID, d.Quantity.String(), d.Unit)
	}
	return nil
}

func (c *SessionCommand) handleAllocateAll(ctx context.Context) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	result, err := c.engine.service.AllocateAllRemaining(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %d of %d drafts applied\n", result.Outcome(), len(result.Succeeded), result.Planned)
	if result.FirstFailure != nil {
		fmt.Fprintf(c.out, "First failure at %d: %v\n", result.FailedIndex, result.FirstFailure)
	}
	return nil
}

func (c *SessionCommand) handleRestock(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: restock <lot> <qty> <unit>")
	}
	quantity, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	lot, err := c.engine.service.Restock(ctx, args[0], quantity, args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Lot %s now holds %s %s\n", lot.ID, lot.RemainingQuantity.String(), lot.Unit)
	return nil
}

func (c *SessionCommand) handleOutput(ctx context.Context, args []string) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: output <qty> <unit>")
	}
	quantity, err := parseQuantity(args[0])
	if err != nil {
		return err
	}
	lot, err := c.engine.service.RecordOutput(ctx, runID, quantity, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Produced lot %s: %s %s of %s, allergens %v\n",
		lot.ID, lot.RemainingQuantity.String(), lot.Unit, lot.InventoryItemID, lot.Allergens)
	return nil
}

func (c *SessionCommand) handleAllergens(ctx context.Context) error {
	runID, err := c.currentRun()
	if err != nil {
		return err
	}
	allergens, err := c.engine.service.EffectiveAllergens(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Allergens: %v\n", allergens.Sorted())
	return nil
}

func (c *SessionCommand) handleShowEvents(args []string) error {
	limit := 10
	if len(args) > 0 {
		if l, err := strconv.Atoi(args[0]); err == nil {
			limit = l
		}
	}

	allEvents, err := c.engine.events.ReadAllEvents(0)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	fmt.Fprintf(c.out, "=== Recent Events (last %d) ===\n", limit)
	start := len(allEvents) - limit
	if start < 0 {
		start = 0
	}
	for i := start; i < len(allEvents); i++ {
		event := allEvents[i]
		fmt.Fprintf(c.out, "[%s] %s -> %s\n",
			event.Timestamp().Format("15:04:05"),
			event.Type(),
			event.StreamID())
	}
	return nil
}

func (c *SessionCommand) lotUnit(ctx context.Context, lotID string) string {
	lot, err := c.engine.store.GetLot(ctx, lotID)
	if err != nil {
		return "?"
	}
	return lot.Unit
}

func parseQuantity(s string) (decimal.Decimal, error) {
	quantity, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity: %s", s)
	}
	return quantity, nil
}

func (c *SessionCommand) printHelp() {
	fmt.Fprintln(c.out, `Allocation Session Command

USAGE:
    batchalloc session [OPTIONS]

OPTIONS:
    -scenario <DIR>     Path to scenario directory containing CSV files
    -store <driver>     Lot store: memory or sqlite
    -help               Show this help message

DESCRIPTION:
    Starts an interactive session where you can start production runs,
    allocate lots to their lines and watch fulfillment and allergens change.`)
}

func (c *SessionCommand) printInteractiveHelp() {
	fmt.Fprintln(c.out, `Available commands:

  start <recipe> <qty> <unit>
      Start a production run and make it current
      Example: start BREAD 15 kg

  use <run-id>
      Switch the current run

  rescale <qty> <unit>
      Change the planned output of the current run

  status
      Show line fulfillment of the current run

  candidates <line> [no-rework]
      List lots that can be consumed for a line, oldest first

  commit <line|-> <lot> <qty> <unit>
      Allocate from a lot; '-' records ad-hoc consumption
      Example: commit L1 LOT-F1 1 kg

  reverse <allocation-id>
      Undo an allocation

  suggest
      Show the FIFO drafts that would cover every open line

  allocate-all
      Commit the suggested drafts

  restock <lot> <qty> <unit>
      Add stock to a lot

  output <qty> <unit>
      Book the current run's product as a rework lot

  allergens
      Show the current run's effective allergens

  events [limit]
      Show recent events (default: 10)

  help, h
      Show this help message

  quit, q, exit
      Exit the session`)
}
