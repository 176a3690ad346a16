package services

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// unitDef places a unit in its dimension with a factor to the dimension's base unit
type unitDef struct {
	dimension entities.Dimension
	toBase    decimal.Decimal
}

// itemRule is an item-specific bridge between two units of different dimensions:
// 1 FromUnit of the item = Factor ToUnit.
type itemRule struct {
	fromUnit string
	toUnit   string
	factor   decimal.Decimal
}

// defaultUnits holds the built-in table. Bases: g (mass), ml (volume), pcs (count).
var defaultUnits = map[string]unitDef{
	"mg": {entities.Mass, decimal.RequireFromString("0.001")},
	"g":  {entities.Mass, decimal.NewFromInt(1)},
	"kg": {entities.Mass, decimal.NewFromInt(1000)},
	"oz": {entities.Mass, decimal.RequireFromString("28.349523125")},
	"lb": {entities.Mass, decimal.RequireFromString("453.59237")},

	"ml":    {entities.Volume, decimal.NewFromInt(1)},
	"cl":    {entities.Volume, decimal.NewFromInt(10)},
	"dl":    {entities.Volume, decimal.NewFromInt(100)},
	"l":     {entities.Volume, decimal.NewFromInt(1000)},
	"tsp":   {entities.Volume, decimal.RequireFromString("4.92892159375")},
	"tbsp":  {entities.Volume, decimal.RequireFromString("14.78676478125")},
	"cup":   {entities.Volume, decimal.RequireFromString("236.5882365")},
	"fl-oz": {entities.Volume, decimal.RequireFromString("29.5735295625")},

	"pcs":   {entities.Count, decimal.NewFromInt(1)},
	"ea":    {entities.Count, decimal.NewFromInt(1)},
	"dozen": {entities.Count, decimal.NewFromInt(12)},
}

// UnitConverter converts quantities between unit symbols using a table keyed by
// dimension class. Cross-dimension conversion is only possible through
// item-specific rules. Safe for concurrent use.
type UnitConverter struct {
	mu        sync.RWMutex
	units     map[string]unitDef
	itemRules map[string][]itemRule
}

// NewUnitConverter creates a converter seeded with the built-in unit table
func NewUnitConverter() *UnitConverter {
	units := make(map[string]unitDef, len(defaultUnits))
	for symbol, def := range defaultUnits {
		units[symbol] = def
	}
	return &UnitConverter{
		units:     units,
		itemRules: make(map[string][]itemRule),
	}
}

// RegisterUnit adds or replaces a unit: 1 symbol = toBase base units of dimension
func (c *UnitConverter) RegisterUnit(symbol string, dimension entities.Dimension, toBase decimal.Decimal) error {
	symbol = entities.NormalizeUnit(symbol)
	if symbol == "" {
		return fmt.Errorf("unit symbol cannot be empty")
	}
	if !toBase.IsPositive() {
		return fmt.Errorf("unit factor must be positive, got %s", toBase.String())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.units[symbol] = unitDef{dimension: dimension, toBase: toBase}
	return nil
}

// RegisterItemConversion records that, for itemID, 1 fromUnit equals factor toUnit.
// Typical uses are densities (1 l oil = 0.92 kg) and piece weights (1 pcs egg = 60 g).
// The rule is usable in both directions.
func (c *UnitConverter) RegisterItemConversion(itemID, fromUnit, toUnit string, factor decimal.Decimal) error {
	if itemID == "" {
		return fmt.Errorf("item id cannot be empty")
	}
	if !factor.IsPositive() {
		return fmt.Errorf("conversion factor must be positive, got %s", factor.String())
	}
	from := entities.NormalizeUnit(fromUnit)
	to := entities.NormalizeUnit(toUnit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.units[from]; !ok {
		return fmt.Errorf("unknown unit %q", fromUnit)
	}
	if _, ok := c.units[to]; !ok {
		return fmt.Errorf("unknown unit %q", toUnit)
	}
	c.itemRules[itemID] = append(c.itemRules[itemID], itemRule{fromUnit: from, toUnit: to, factor: factor})
	return nil
}

// Dimension returns the dimension class of unit
func (c *UnitConverter) Dimension(unit string) (entities.Dimension, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.units[entities.NormalizeUnit(unit)]
	return def.dimension, ok
}

// Convert converts quantity between two units of the same dimension
func (c *UnitConverter) Convert(quantity decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	return c.ConvertForItem("", quantity, fromUnit, toUnit)
}

// ConvertForItem converts quantity for a specific item, allowing the item's
// cross-dimension rules. Results are rounded to entities.ConversionPrecision.
func (c *UnitConverter) ConvertForItem(itemID string, quantity decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	if entities.SameUnit(fromUnit, toUnit) {
		return entities.RoundConverted(quantity), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	from, ok := c.units[entities.NormalizeUnit(fromUnit)]
	if !ok {
		return decimal.Zero, c.conversionError(itemID, quantity, fromUnit, toUnit, fmt.Sprintf("unknown unit %q", fromUnit))
	}
	to, ok := c.units[entities.NormalizeUnit(toUnit)]
	if !ok {
		return decimal.Zero, c.conversionError(itemID, quantity, fromUnit, toUnit, fmt.Sprintf("unknown unit %q", toUnit))
	}

	if from.dimension == to.dimension {
		return entities.RoundConverted(quantity.Mul(from.toBase).Div(to.toBase)), nil
	}

	for _, rule := range c.itemRules[itemID] {
		ruleFrom := c.units[rule.fromUnit]
		ruleTo := c.units[rule.toUnit]

		// Amount in base units of the target dimension per base unit of the source dimension.
		var bridge decimal.Decimal
		switch {
		case ruleFrom.dimension == from.dimension && ruleTo.dimension == to.dimension:
			bridge = rule.factor.Mul(ruleTo.toBase).Div(ruleFrom.toBase)
		case ruleTo.dimension == from.dimension && ruleFrom.dimension == to.dimension:
			bridge = ruleFrom.toBase.Div(rule.factor.Mul(ruleTo.toBase))
		default:
			continue
		}
		base := quantity.Mul(from.toBase)
		return entities.RoundConverted(base.Mul(bridge).Div(to.toBase)), nil
	}

	return decimal.Zero, c.conversionError(itemID, quantity, fromUnit, toUnit,
		fmt.Sprintf("%s and %s have no registered conversion", from.dimension, to.dimension))
}

func (c *UnitConverter) conversionError(itemID string, quantity decimal.Decimal, fromUnit, toUnit, reason string) error {
	return &entities.ConversionError{
		Quantity: quantity,
		FromUnit: fromUnit,
		ToUnit:   toUnit,
		ItemID:   itemID,
		Reason:   reason,
	}
}
