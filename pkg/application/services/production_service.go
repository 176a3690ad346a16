package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/application/dto"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
	"github.com/vsinha/batchalloc/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// ServiceConfig wires a ProductionService. Converter, Locker, Publisher,
// Logger and Clock fall back to defaults when nil.
type ServiceConfig struct {
	Recipes     repositories.RecipeRepository
	Catalog     repositories.CatalogRepository
	Runs        repositories.RunRepository
	Lots        repositories.LotRepository
	Allocations repositories.AllocationRepository
	Converter   *domainservices.UnitConverter
	Locker      LotLocker
	Publisher   events.Publisher
	Logger      *zap.Logger
	Clock       func() time.Time
}

// ProductionService orchestrates production runs over the allocation engine.
// It holds no per-run state; every call works from the stores.
type ProductionService struct {
	recipes   repositories.RecipeRepository
	catalog   repositories.CatalogRepository
	runs      repositories.RunRepository
	lots      repositories.LotRepository
	converter *domainservices.UnitConverter
	validator *domainservices.RecipeValidator
	planner   *RunPlanner
	selector  *BatchSelector
	ledger    *AllocationLedger
	tracker   *FulfillmentTracker
	allergens *AllergenAggregator
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewProductionService creates a service from cfg
func NewProductionService(cfg ServiceConfig) *ProductionService {
	if cfg.Converter == nil {
		cfg.Converter = domainservices.NewUnitConverter()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	ledgerOpts := []LedgerOption{
		WithPublisher(cfg.Publisher),
		WithLogger(cfg.Logger.Named("ledger")),
		WithClock(cfg.Clock),
	}
	if cfg.Locker != nil {
		ledgerOpts = append(ledgerOpts, WithLocker(cfg.Locker))
	}

	resolver := NewRecipeResolver(cfg.Catalog)
	scaling := NewScalingCalculator(cfg.Converter)
	planner := NewRunPlanner(cfg.Runs, cfg.Recipes, resolver, scaling)
	allergens := NewAllergenAggregator(cfg.Runs, cfg.Recipes, cfg.Lots, cfg.Allocations)

	return &ProductionService{
		recipes:   cfg.Recipes,
		catalog:   cfg.Catalog,
		runs:      cfg.Runs,
		lots:      cfg.Lots,
		converter: cfg.Converter,
		validator: domainservices.NewRecipeValidator(),
		planner:   planner,
		selector:  NewBatchSelector(cfg.Lots),
		ledger:    NewAllocationLedger(cfg.Lots, cfg.Allocations, cfg.Converter, ledgerOpts...),
		tracker:   NewFulfillmentTracker(planner, cfg.Allocations, cfg.Converter, allergens),
		allergens: allergens,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
}

// Ledger exposes the allocation ledger for callers that bypass line checks
func (s *ProductionService) Ledger() *AllocationLedger { return s.ledger }

// Selector exposes the batch selector
func (s *ProductionService) Selector() *BatchSelector { return s.selector }

// Tracker exposes the fulfillment tracker
func (s *ProductionService) Tracker() *FulfillmentTracker { return s.tracker }

// Allergens exposes the allergen aggregator
func (s *ProductionService) Allergens() *AllergenAggregator { return s.allergens }

// StartRun validates recipeID and records a new run planning the given output
func (s *ProductionService) StartRun(ctx context.Context, recipeID string, planned decimal.Decimal, outputUnit string) (*entities.ProductionRun, error) {
	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	graph, err := s.recipeGraph(ctx, recipe)
	if err != nil {
		return nil, err
	}
	if result := s.validator.ValidateRecipe(recipe, graph); !result.Valid() {
		return nil, fmt.Errorf("recipe %s is invalid: %s", recipe.ID, strings.Join(result.Errors, "; "))
	}

	run, err := entities.NewProductionRun(uuid.NewString(), recipe, planned, outputUnit, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run for recipe %s: %w", recipe.ID, err)
	}

	s.logger.Info("production run started",
		zap.String("run_id", run.ID),
		zap.String("recipe_id", recipe.ID),
		zap.String("planned", planned.String()),
		zap.String("unit", outputUnit),
	)
	s.publish(events.NewRunStartedEvent(*run))
	return run, nil
}

// recipeGraph collects recipe and every sub-recipe reachable from it that the
// repository knows about
func (s *ProductionService) recipeGraph(ctx context.Context, recipe *entities.Recipe) ([]*entities.Recipe, error) {
	graph := []*entities.Recipe{recipe}
	seen := map[string]bool{recipe.ID: true}
	queue := []*entities.Recipe{recipe}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, line := range current.Lines {
			if !line.IsSubRecipe || seen[line.SubRecipeID] {
				continue
			}
			seen[line.SubRecipeID] = true
			sub, err := s.recipes.GetRecipe(ctx, line.SubRecipeID)
			if errors.Is(err, entities.ErrRecipeNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			graph = append(graph, sub)
			queue = append(queue, sub)
		}
	}
	return graph, nil
}

// UpdatePlannedOutput rescales a run. Needs are derived, so nothing else is rewritten.
func (s *ProductionService) UpdatePlannedOutput(ctx context.Context, runID string, planned decimal.Decimal, outputUnit string) (*entities.ProductionRun, error) {
	if !planned.IsPositive() {
		return nil, fmt.Errorf("planned output quantity must be positive, got %s", planned.String())
	}
	if outputUnit == "" {
		return nil, fmt.Errorf("output unit cannot be empty")
	}

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	oldPlanned := run.PlannedOutputQuantity
	run.PlannedOutputQuantity = planned
	run.OutputUnit = outputUnit
	if err := s.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run %s: %w", runID, err)
	}

	s.logger.Info("production run rescaled",
		zap.String("run_id", runID),
		zap.String("old_planned", oldPlanned.String()),
		zap.String("new_planned", planned.String()),
		zap.String("unit", outputUnit),
	)
	s.publish(events.NewRunRescaledEvent(runID, oldPlanned, planned, outputUnit))
	return run, nil
}

// Plan returns the resolved, scaled lines of runID
func (s *ProductionService) Plan(ctx context.Context, runID string) (*dto.RunPlan, error) {
	return s.planner.Plan(ctx, runID)
}

// Candidates lists lots that may be consumed for lineID of runID
func (s *ProductionService) Candidates(ctx context.Context, runID, lineID string, opts ...CandidateOption) ([]LotCandidate, error) {
	plan, err := s.planner.Plan(ctx, runID)
	if err != nil {
		return nil, err
	}
	line, ok := plan.Line(lineID)
	if !ok {
		return nil, fmt.Errorf("run %s has no line %s", runID, lineID)
	}
	if !line.Resolved.Allocatable() {
		return nil, line.Resolved.Err()
	}
	return s.selector.Candidates(ctx, line.Resolved.InventoryItemID, runID, opts...)
}

// Commit allocates one draft after checking its line belongs to the run and
// its lot holds the line's item
func (s *ProductionService) Commit(ctx context.Context, runID string, draft entities.AllocationDraft) (*entities.Allocation, error) {
	plan, err := s.planner.Plan(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Commit(ctx, runID, draft, WithLotGuard(lineGuard(plan)))
}

// Reverse undoes one allocation
func (s *ProductionService) Reverse(ctx context.Context, allocationID string) (*entities.Allocation, error) {
	return s.ledger.Reverse(ctx, allocationID)
}

// BulkCommit applies plan in order, stopping at the first failure
func (s *ProductionService) BulkCommit(ctx context.Context, runID string, drafts []entities.AllocationDraft) (*entities.BulkCommitResult, error) {
	plan, err := s.planner.Plan(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.ledger.BulkCommit(ctx, runID, drafts, WithLotGuard(lineGuard(plan))), nil
}

// Restock adds stock to a lot
func (s *ProductionService) Restock(ctx context.Context, lotID string, quantity decimal.Decimal, unit string) (*entities.Lot, error) {
	return s.ledger.Restock(ctx, lotID, quantity, unit)
}

// lineGuard rejects drafts for unknown or untrackable lines and lots of another item
func lineGuard(plan *dto.RunPlan) LotGuard {
	return func(draft entities.AllocationDraft, lot *entities.Lot) error {
		if draft.LineID == "" {
			return nil
		}
		line, ok := plan.Line(draft.LineID)
		if !ok {
			return fmt.Errorf("run %s has no line %s: %w", plan.Run.ID, draft.LineID, entities.ErrInvalidDraft)
		}
		if !line.Resolved.Allocatable() {
			return fmt.Errorf("%v: %w", line.Resolved.Err(), entities.ErrInvalidDraft)
		}
		if lot.InventoryItemID != line.Resolved.InventoryItemID {
			return fmt.Errorf("lot %s holds item %s, line %s needs %s: %w",
				lot.ID, lot.InventoryItemID, draft.LineID, line.Resolved.InventoryItemID, entities.ErrInvalidDraft)
		}
		return nil
	}
}

// SuggestPlan proposes FIFO drafts covering every open line's shortfall.
// Drafts are in the line's needed unit, except those that drain a lot, which
// use the lot's own unit and exact balance. Lines sharing an item draw on
// what earlier drafts of the plan leave in each lot. Nothing is committed.
func (s *ProductionService) SuggestPlan(ctx context.Context, runID string, opts ...CandidateOption) ([]entities.AllocationDraft, error) {
	plan, err := s.planner.Plan(ctx, runID)
	if err != nil {
		return nil, err
	}
	report, err := s.tracker.ReportPlan(ctx, plan)
	if err != nil {
		return nil, err
	}

	var drafts []entities.AllocationDraft
	// drafted is what earlier drafts of this plan take from each lot, in the lot's unit
	drafted := make(map[string]decimal.Decimal)
	for i, line := range plan.Lines {
		status := report.Lines[i]
		if status.State != entities.Unfulfilled && status.State != entities.Partial {
			continue
		}

		shortfall := status.Shortfall()
		if !shortfall.IsPositive() {
			continue
		}

		candidates, err := s.selector.Candidates(ctx, line.Resolved.InventoryItemID, runID, opts...)
		if err != nil {
			return nil, err
		}

		for _, candidate := range candidates {
			if !shortfall.IsPositive() {
				break
			}
			lot := candidate.Lot
			left := lot.RemainingQuantity.Sub(drafted[lot.ID])
			if !left.IsPositive() {
				continue
			}
			available, err := s.converter.ConvertForItem(lot.InventoryItemID, left, lot.Unit, line.Needed.Unit)
			if err != nil {
				s.logger.Debug("skipping lot with incompatible unit",
					zap.String("run_id", runID),
					zap.String("line_id", line.LineID()),
					zap.String("lot_id", lot.ID),
					zap.Error(err),
				)
				continue
			}
			if !available.IsPositive() {
				continue
			}

			if available.GreaterThan(shortfall) {
				debit, err := s.converter.ConvertForItem(lot.InventoryItemID, shortfall, line.Needed.Unit, lot.Unit)
				if err == nil && debit.LessThan(left) {
					drafts = append(drafts, entities.AllocationDraft{
						LineID:   line.LineID(),
						LotID:    lot.ID,
						Quantity: shortfall,
						Unit:     line.Needed.Unit,
					})
					drafted[lot.ID] = drafted[lot.ID].Add(debit)
					shortfall = decimal.Zero
					continue
				}
			}

			drafts = append(drafts, entities.AllocationDraft{
				LineID:   line.LineID(),
				LotID:    lot.ID,
				Quantity: left,
				Unit:     lot.Unit,
			})
			drafted[lot.ID] = lot.RemainingQuantity
			shortfall = shortfall.Sub(available)
		}
	}

	return drafts, nil
}

// AllocateAllRemaining commits SuggestPlan. A partially applied result is
// returned as is, never hidden.
func (s *ProductionService) AllocateAllRemaining(ctx context.Context, runID string, opts ...CandidateOption) (*entities.BulkCommitResult, error) {
	drafts, err := s.SuggestPlan(ctx, runID, opts...)
	if err != nil {
		return nil, err
	}
	return s.BulkCommit(ctx, runID, drafts)
}

// Status returns the fulfillment of one line of runID
func (s *ProductionService) Status(ctx context.Context, runID, lineID string) (dto.LineFulfillment, error) {
	plan, err := s.planner.Plan(ctx, runID)
	if err != nil {
		return dto.LineFulfillment{}, err
	}
	line, ok := plan.Line(lineID)
	if !ok {
		return dto.LineFulfillment{}, fmt.Errorf("run %s has no line %s", runID, lineID)
	}
	return s.tracker.Status(ctx, runID, line)
}

// AggregateCompletion is the fraction of trackable lines already fulfilled
func (s *ProductionService) AggregateCompletion(ctx context.Context, runID string) (float64, error) {
	return s.tracker.AggregateCompletion(ctx, runID)
}

// EffectiveAllergens recomputes the run's allergen set from current allocations
func (s *ProductionService) EffectiveAllergens(ctx context.Context, runID string) (entities.AllergenSet, error) {
	return s.allergens.EffectiveAllergens(ctx, runID)
}

// Report returns the run's full fulfillment report
func (s *ProductionService) Report(ctx context.Context, runID string) (*dto.FulfillmentReport, error) {
	return s.tracker.Report(ctx, runID)
}

// SubRecipeRequests lists the scaled sub-recipe quantities runID depends on.
// Each is meant to be produced by its own run.
func (s *ProductionService) SubRecipeRequests(ctx context.Context, runID string) ([]dto.SubRecipeRequest, error) {
	plan, err := s.planner.Plan(ctx, runID)
	if err != nil {
		return nil, err
	}

	var requests []dto.SubRecipeRequest
	for _, line := range plan.Lines {
		if line.Resolved.State != entities.SubRecipe {
			continue
		}
		requests = append(requests, dto.SubRecipeRequest{
			LineID:      line.LineID(),
			RecipeID:    line.Resolved.Line.SubRecipeID,
			Quantity:    line.Needed.Raw,
			Unit:        line.Needed.RawUnit,
			ParentRunID: runID,
		})
	}
	return requests, nil
}

// RecordOutput books quantity of the run's product as a new rework lot carrying
// the run's current effective allergens. The lot is never offered back to runID.
func (s *ProductionService) RecordOutput(ctx context.Context, runID string, quantity decimal.Decimal, unit string) (*entities.Lot, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("output of run %s: %w", runID, entities.ErrInvalidQuantity)
	}

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	recipe, err := s.recipes.GetRecipe(ctx, run.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	item, err := s.outputItem(ctx, recipe)
	if err != nil {
		return nil, err
	}
	lotQty, err := s.converter.ConvertForItem(item.ID, quantity, unit, item.CanonicalUnit)
	if err != nil {
		return nil, fmt.Errorf("output of run %s: %w", runID, err)
	}

	allergens, err := s.allergens.EffectiveAllergens(ctx, runID)
	if err != nil {
		return nil, err
	}

	lot, err := entities.NewLot(uuid.NewString(), item.ID, lotQty, item.CanonicalUnit, allergens.Sorted(), runID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.lots.SaveLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to save output lot of run %s: %w", runID, err)
	}

	s.logger.Info("rework lot produced",
		zap.String("run_id", runID),
		zap.String("lot_id", lot.ID),
		zap.String("item_id", item.ID),
		zap.String("quantity", lot.RemainingQuantity.String()),
		zap.String("unit", lot.Unit),
		zap.Strings("allergens", lot.Allergens),
	)
	s.publish(events.NewReworkLotProducedEvent(*lot))
	return lot, nil
}

// outputItem finds the catalog item a recipe's product is stocked as,
// looked up by recipe id and then by name
func (s *ProductionService) outputItem(ctx context.Context, recipe *entities.Recipe) (*entities.InventoryItem, error) {
	for _, ref := range []string{recipe.ID, recipe.Name} {
		if ref == "" {
			continue
		}
		item, err := s.catalog.FindItemForIngredient(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output of recipe %s: %w", recipe.ID, err)
		}
		if item != nil {
			return item, nil
		}
	}
	return nil, fmt.Errorf("recipe %s output: %w", recipe.ID, entities.ErrUnmappedIngredient)
}

func (s *ProductionService) publish(event events.Event) {
	if err := s.publisher.Publish(events.Stamp(event, s.now())); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", event.Type()),
			zap.String("stream_id", event.StreamID()),
			zap.Error(err),
		)
	}
}
