package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// Scenario file names inside a scenario directory
const (
	RecipesFile     = "recipes.csv"
	RecipeLinesFile = "recipe_lines.csv"
	ItemsFile       = "items.csv"
	LotsFile        = "lots.csv"
	ConversionsFile = "conversions.csv"
)

// ItemConversion is an item-specific cross-dimension rule: 1 FromUnit = Factor ToUnit
type ItemConversion struct {
	ItemID   string
	FromUnit string
	ToUnit   string
	Factor   decimal.Decimal
}

// Scenario is the full collaborator data set read from a directory
type Scenario struct {
	Recipes     []*entities.Recipe
	Items       []*entities.InventoryItem
	Lots        []*entities.Lot
	Conversions []ItemConversion
}

// Loader handles loading allocation scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads every scenario file in dir. conversions.csv is optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	recipes, err := l.LoadRecipes(filepath.Join(dir, RecipesFile), filepath.Join(dir, RecipeLinesFile))
	if err != nil {
		return nil, err
	}
	items, err := l.LoadItems(filepath.Join(dir, ItemsFile))
	if err != nil {
		return nil, err
	}
	lots, err := l.LoadLots(filepath.Join(dir, LotsFile))
	if err != nil {
		return nil, err
	}

	var conversions []ItemConversion
	conversionsPath := filepath.Join(dir, ConversionsFile)
	if _, statErr := os.Stat(conversionsPath); statErr == nil {
		conversions, err = l.LoadConversions(conversionsPath)
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat conversions file %s: %w", conversionsPath, statErr)
	}

	return &Scenario{
		Recipes:     recipes,
		Items:       items,
		Lots:        lots,
		Conversions: conversions,
	}, nil
}

// LoadRecipes loads recipe headers and their lines. Lines keep file order per recipe.
func (l *Loader) LoadRecipes(recipesFile, linesFile string) ([]*entities.Recipe, error) {
	headerRows, err := readRecords(recipesFile, "recipes",
		[]string{"recipe_id", "name", "yield_quantity", "yield_unit", "allergens"})
	if err != nil {
		return nil, err
	}
	lineRows, err := readRecords(linesFile, "recipe lines",
		[]string{"recipe_id", "line_id", "ingredient", "sub_recipe_id", "quantity", "unit", "allergens"})
	if err != nil {
		return nil, err
	}

	linesByRecipe := make(map[string][]entities.RecipeLine)
	for i, record := range lineRows {
		line, err := parseRecipeLine(record)
		if err != nil {
			return nil, fmt.Errorf("recipe lines CSV row %d: %w", i+2, err)
		}
		linesByRecipe[record[0]] = append(linesByRecipe[record[0]], *line)
	}

	var recipes []*entities.Recipe
	for i, record := range headerRows {
		yieldQty, err := parseDecimal(record[2], "yield_quantity")
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: %w", i+2, err)
		}
		recipe, err := entities.NewRecipe(record[0], record[1], yieldQty, record[3], splitTags(record[4]), linesByRecipe[record[0]])
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: %w", i+2, err)
		}
		delete(linesByRecipe, record[0])
		recipes = append(recipes, recipe)
	}

	if len(linesByRecipe) > 0 {
		orphans := make([]string, 0, len(linesByRecipe))
		for recipeID := range linesByRecipe {
			orphans = append(orphans, recipeID)
		}
		sort.Strings(orphans)
		return nil, fmt.Errorf("recipe lines reference unknown recipes: %s", strings.Join(orphans, ", "))
	}

	return recipes, nil
}

// LoadItems loads inventory items from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.InventoryItem, error) {
	records, err := readRecords(filename, "items", []string{"item_id", "name", "ingredient", "canonical_unit"})
	if err != nil {
		return nil, err
	}

	var items []*entities.InventoryItem
	for i, record := range records {
		item, err := entities.NewInventoryItem(record[0], record[1], record[2], record[3])
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadLots loads inventory lots from a CSV file
func (l *Loader) LoadLots(filename string) ([]*entities.Lot, error) {
	records, err := readRecords(filename, "lots",
		[]string{"lot_id", "item_id", "remaining_quantity", "unit", "allergens", "source_run_id", "created_at"})
	if err != nil {
		return nil, err
	}

	var lots []*entities.Lot
	for i, record := range records {
		lot, err := parseLot(record)
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: %w", i+2, err)
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// LoadConversions loads item-specific unit conversions from a CSV file
func (l *Loader) LoadConversions(filename string) ([]ItemConversion, error) {
	records, err := readRecords(filename, "conversions", []string{"item_id", "from_unit", "to_unit", "factor"})
	if err != nil {
		return nil, err
	}

	var conversions []ItemConversion
	for i, record := range records {
		factor, err := parseDecimal(record[3], "factor")
		if err != nil {
			return nil, fmt.Errorf("conversions CSV row %d: %w", i+2, err)
		}
		if !factor.IsPositive() {
			return nil, fmt.Errorf("conversions CSV row %d: factor must be positive, got %s", i+2, record[3])
		}
		conversions = append(conversions, ItemConversion{
			ItemID:   record[0],
			FromUnit: record[1],
			ToUnit:   record[2],
			Factor:   factor,
		})
	}
	return conversions, nil
}

// Helper functions for parsing CSV records

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseRecipeLine(record []string) (*entities.RecipeLine, error) {
	quantity, err := parseDecimal(record[4], "quantity")
	if err != nil {
		return nil, err
	}

	lineID := record[1]
	ingredient := strings.TrimSpace(record[2])
	subRecipeID := strings.TrimSpace(record[3])
	allergens := splitTags(record[6])

	switch {
	case subRecipeID != "" && ingredient != "":
		return nil, fmt.Errorf("line %s sets both ingredient and sub_recipe_id", lineID)
	case subRecipeID != "":
		return entities.NewSubRecipeLine(lineID, subRecipeID, quantity, record[5], allergens...)
	default:
		return entities.NewRecipeLine(lineID, ingredient, quantity, record[5], allergens...)
	}
}

func parseLot(record []string) (*entities.Lot, error) {
	remaining, err := parseDecimal(record[2], "remaining_quantity")
	if err != nil {
		return nil, err
	}

	createdAt, err := parseTimestamp(record[6])
	if err != nil {
		return nil, err
	}

	return entities.NewLot(record[0], record[1], remaining, record[3], splitTags(record[4]), strings.TrimSpace(record[5]), createdAt)
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

// parseTimestamp accepts RFC 3339 or a plain YYYY-MM-DD date
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_at format: %s (expected RFC 3339 or YYYY-MM-DD)", s)
	}
	return t, nil
}

// splitTags parses a semicolon separated tag list
func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ";") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
