package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/application/dto"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
)

// ScalingCalculator derives per-line needs from a run's planned output
type ScalingCalculator struct {
	converter *domainservices.UnitConverter
}

// NewScalingCalculator creates a calculator using converter
func NewScalingCalculator(converter *domainservices.UnitConverter) *ScalingCalculator {
	return &ScalingCalculator{converter: converter}
}

// ScaleFactor is planned/yield against recipe's current yield, or 1 when the
// recipe declares none. A planned output in a different unit is first
// converted into the yield unit.
func (s *ScalingCalculator) ScaleFactor(run *entities.ProductionRun, recipe *entities.Recipe) (decimal.Decimal, error) {
	if !recipe.YieldQuantity.IsPositive() {
		return decimal.NewFromInt(1), nil
	}

	planned := run.PlannedOutputQuantity
	if !entities.SameUnit(run.OutputUnit, recipe.YieldUnit) {
		converted, err := s.converter.Convert(planned, run.OutputUnit, recipe.YieldUnit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("run %s planned output: %w", run.ID, err)
		}
		planned = converted
	}

	return recipe.RawScaleFactor(planned), nil
}

// NeededQuantity scales line by the run's factor, rounds to NeededPrecision and
// expresses the result in the run's output unit. A line that cannot be
// converted is marked NeedsAttention and carries no usable Quantity.
func (s *ScalingCalculator) NeededQuantity(line entities.ResolvedLine, run *entities.ProductionRun, recipe *entities.Recipe) dto.NeededQuantity {
	factor, err := s.ScaleFactor(run, recipe)
	if err != nil {
		return dto.NeededQuantity{
			LineID:         line.Line.ID,
			RawUnit:        line.Line.Unit,
			Unit:           run.OutputUnit,
			NeedsAttention: true,
			Err:            err,
		}
	}
	return s.neededWithFactor(line, run, factor)
}

func (s *ScalingCalculator) neededWithFactor(line entities.ResolvedLine, run *entities.ProductionRun, factor decimal.Decimal) dto.NeededQuantity {
	raw := entities.RoundNeeded(line.Line.Quantity.Mul(factor))
	needed := dto.NeededQuantity{
		LineID:  line.Line.ID,
		Raw:     raw,
		RawUnit: line.Line.Unit,
		Unit:    run.OutputUnit,
	}

	converted, err := s.converter.ConvertForItem(line.InventoryItemID, raw, line.Line.Unit, run.OutputUnit)
	if err != nil {
		needed.NeedsAttention = true
		needed.Err = fmt.Errorf("line %s: %w", line.Line.ID, err)
		return needed
	}
	needed.Quantity = converted
	return needed
}
