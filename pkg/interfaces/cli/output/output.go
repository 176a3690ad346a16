package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vsinha/batchalloc/pkg/application/dto"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Elapsed   time.Duration
	Writer    io.Writer // defaults to os.Stdout
}

// Result is everything one allocate invocation produced
type Result struct {
	Run        *entities.ProductionRun
	Report     *dto.FulfillmentReport
	Drafts     []entities.AllocationDraft
	Bulk       *entities.BulkCommitResult // nil when nothing was committed
	SubRecipes []dto.SubRecipeRequest
}

// Generate creates output in the specified format
func Generate(result *Result, config Config) error {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	switch config.Format {
	case "text", "":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateTextOutput(result *Result, config Config) error {
	w := config.Writer
	report := result.Report

	fmt.Fprintf(w, "📊 Production Run %s\n", result.Run.ID)
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Recipe: %s\n", report.RecipeID)
	fmt.Fprintf(w, "Planned Output: %s %s\n", result.Run.PlannedOutputQuantity.String(), result.Run.OutputUnit)
	fmt.Fprintf(w, "Scale Factor: %s\n", report.ScaleFactor.String())
	fmt.Fprintf(w, "Completion: %.1f%% (%d of %d trackable lines)\n",
		report.Completion*100, report.FulfilledLines, report.TrackableLines)
	if config.Verbose {
		fmt.Fprintf(w, "Elapsed: %v\n", config.Elapsed)
	}
	fmt.Fprintln(w)

	WriteLines(w, report.Lines)

	if result.Bulk != nil {
		fmt.Fprintf(w, "📦 Bulk Commit: %s (%d of %d applied)\n",
			result.Bulk.Outcome(), len(result.Bulk.Succeeded), result.Bulk.Planned)
		if result.Bulk.FirstFailure != nil {
			fmt.Fprintf(w, "  Failed entry %d: %v\n", result.Bulk.FailedIndex, result.Bulk.FirstFailure)
			fmt.Fprintf(w, "  Untouched entries: %d\n", result.Bulk.Untouched())
		}
		fmt.Fprintln(w)
	} else if len(result.Drafts) > 0 {
		fmt.Fprintf(w, "📝 Suggested Drafts (not committed):\n")
		for _, d := range result.Drafts {
			fmt.Fprintf(w, "  %-6s %-12s %s %s\n", d.LineID, d.LotID, d.Quantity.String(), d.Unit)
		}
		fmt.Fprintln(w)
	}

	if len(report.AdHocAllocations) > 0 {
		fmt.Fprintf(w, "Ad-hoc consumption: %d allocation(s)\n\n", len(report.AdHocAllocations))
	}

	if len(result.SubRecipes) > 0 {
		fmt.Fprintf(w, "🔁 Sub-recipe Runs Required:\n")
		for _, request := range result.SubRecipes {
			fmt.Fprintf(w, "  %-6s %-12s %s %s\n", request.LineID, request.RecipeID, request.Quantity.String(), request.Unit)
		}
		fmt.Fprintln(w)
	}

	if len(report.Allergens) > 0 {
		fmt.Fprintf(w, "⚠️  Allergens: %v\n", report.Allergens)
	} else {
		fmt.Fprintf(w, "Allergens: none\n")
	}

	return nil
}

// WriteLines prints a line fulfillment table
func WriteLines(w io.Writer, lines []dto.LineFulfillment) {
	fmt.Fprintf(w, "%-6s %-14s %-15s %-12s %-12s %-6s\n",
		"Line", "Ingredient", "State", "Needed", "Allocated", "Unit")
	fmt.Fprintf(w, "%-6s %-14s %-15s %-12s %-12s %-6s\n",
		"------", "--------------", "---------------", "------------", "------------", "------")
	for _, line := range lines {
		needed, allocated := "-", "-"
		if line.State != entities.NotTrackable && line.State != entities.NeedsAttention {
			needed = line.Needed.String()
			allocated = line.Allocated.String()
		}
		fmt.Fprintf(w, "%-6s %-14s %-15s %-12s %-12s %-6s\n",
			line.LineID, line.Ingredient, line.State.String(), needed, allocated, line.Unit)
		if line.Reason != "" {
			fmt.Fprintf(w, "       %s\n", line.Reason)
		}
	}
	fmt.Fprintln(w)
}

type jsonLine struct {
	LineID      string `json:"line_id"`
	Ingredient  string `json:"ingredient"`
	State       string `json:"state"`
	Needed      string `json:"needed,omitempty"`
	Allocated   string `json:"allocated,omitempty"`
	Unit        string `json:"unit"`
	Allocations int    `json:"allocations"`
	Reason      string `json:"reason,omitempty"`
}

type jsonBulk struct {
	Outcome     string `json:"outcome"`
	Succeeded   int    `json:"succeeded"`
	FailedIndex int    `json:"failed_index"`
	Untouched   int    `json:"untouched"`
	Error       string `json:"error,omitempty"`
}

type jsonReport struct {
	RunID          string                     `json:"run_id"`
	RecipeID       string                     `json:"recipe_id"`
	Planned        string                     `json:"planned"`
	OutputUnit     string                     `json:"output_unit"`
	ScaleFactor    string                     `json:"scale_factor"`
	Completion     float64                    `json:"completion"`
	TrackableLines int                        `json:"trackable_lines"`
	FulfilledLines int                        `json:"fulfilled_lines"`
	Lines          []jsonLine                 `json:"lines"`
	Drafts         []entities.AllocationDraft `json:"drafts,omitempty"`
	Bulk           *jsonBulk                  `json:"bulk,omitempty"`
	AdHoc          int                        `json:"ad_hoc_allocations"`
	SubRecipes     []dto.SubRecipeRequest     `json:"sub_recipes,omitempty"`
	Allergens      []string                   `json:"allergens"`
}

func newJSONReport(result *Result) jsonReport {
	report := result.Report
	out := jsonReport{
		RunID:          result.Run.ID,
		RecipeID:       report.RecipeID,
		Planned:        result.Run.PlannedOutputQuantity.String(),
		OutputUnit:     result.Run.OutputUnit,
		ScaleFactor:    report.ScaleFactor.String(),
		Completion:     report.Completion,
		TrackableLines: report.TrackableLines,
		FulfilledLines: report.FulfilledLines,
		Lines:          make([]jsonLine, 0, len(report.Lines)),
		Drafts:         result.Drafts,
		AdHoc:          len(report.AdHocAllocations),
		SubRecipes:     result.SubRecipes,
		Allergens:      report.Allergens,
	}
	if out.Allergens == nil {
		out.Allergens = []string{}
	}

	for _, line := range report.Lines {
		jl := jsonLine{
			LineID:      line.LineID,
			Ingredient:  line.Ingredient,
			State:       line.State.String(),
			Unit:        line.Unit,
			Allocations: line.Allocations,
			Reason:      line.Reason,
		}
		if line.State != entities.NotTrackable && line.State != entities.NeedsAttention {
			jl.Needed = line.Needed.String()
			jl.Allocated = line.Allocated.String()
		}
		out.Lines = append(out.Lines, jl)
	}

	if result.Bulk != nil {
		out.Bulk = &jsonBulk{
			Outcome:     result.Bulk.Outcome().String(),
			Succeeded:   len(result.Bulk.Succeeded),
			FailedIndex: result.Bulk.FailedIndex,
			Untouched:   result.Bulk.Untouched(),
		}
		if result.Bulk.FirstFailure != nil {
			out.Bulk.Error = result.Bulk.FirstFailure.Error()
		}
	}
	return out
}

func generateJSONOutput(result *Result, config Config) error {
	jsonData, err := json.MarshalIndent(newJSONReport(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.Writer, string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "allocation_report.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Writer, "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one row per recipe line into OutputDir
func generateCSVOutput(result *Result, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	linesFile := filepath.Join(config.OutputDir, "line_fulfillment.csv")
	if err := writeLinesCSV(result, linesFile); err != nil {
		return fmt.Errorf("failed to write line fulfillment CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.Writer, "💾 CSV results saved to: %s\n", linesFile)
	}
	return nil
}

func writeLinesCSV(result *Result, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"run_id", "line_id", "ingredient", "state", "needed", "allocated", "unit", "allocations", "reason"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, line := range result.Report.Lines {
		record := []string{
			result.Run.ID,
			line.LineID,
			line.Ingredient,
			line.State.String(),
			line.Needed.String(),
			line.Allocated.String(),
			line.Unit,
			strconv.Itoa(line.Allocations),
			line.Reason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
