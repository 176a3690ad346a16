package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vsinha/batchalloc/pkg/application/services"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
	"github.com/vsinha/batchalloc/pkg/infrastructure/config"
	"github.com/vsinha/batchalloc/pkg/infrastructure/events"
	"github.com/vsinha/batchalloc/pkg/infrastructure/locking"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/sqlite"
	"go.uber.org/zap"
)

// ledgerStore is the lot and allocation storage behind one engine
type ledgerStore interface {
	repositories.LotRepository
	repositories.AllocationRepository
}

// engine is a ProductionService wired from a scenario directory
type engine struct {
	service  *services.ProductionService
	store    ledgerStore
	events   *events.InMemoryEventStore
	scenario *csv.Scenario
	closers  []func() error
}

// newEngine loads the scenario in dir and wires stores, lock and events per env
func newEngine(ctx context.Context, dir string, env *config.Config, logger *zap.Logger) (*engine, error) {
	scenario, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return nil, fmt.Errorf("error loading scenario: %w", err)
	}

	recipeRepo := memory.NewRecipeRepository()
	if err := recipeRepo.LoadRecipes(scenario.Recipes); err != nil {
		return nil, fmt.Errorf("failed to load recipes into repository: %w", err)
	}
	catalogRepo := memory.NewCatalogRepository(len(scenario.Items))
	if err := catalogRepo.LoadItems(scenario.Items); err != nil {
		return nil, fmt.Errorf("failed to load items into repository: %w", err)
	}

	converter := domainservices.NewUnitConverter()
	for _, rule := range scenario.Conversions {
		if err := converter.RegisterItemConversion(rule.ItemID, rule.FromUnit, rule.ToUnit, rule.Factor); err != nil {
			return nil, fmt.Errorf("invalid conversion for item %s: %w", rule.ItemID, err)
		}
	}

	e := &engine{
		events:   events.NewInMemoryEventStore(logger.Named("events")),
		scenario: scenario,
	}

	store, err := e.openStore(ctx, env.Store)
	if err != nil {
		return nil, err
	}
	e.store = store
	if err := store.LoadLots(scenario.Lots); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to load lots into store: %w", err)
	}

	locker, err := e.openLocker(ctx, env.Redis, logger)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.service = services.NewProductionService(services.ServiceConfig{
		Recipes:     recipeRepo,
		Catalog:     catalogRepo,
		Runs:        memory.NewRunRepository(),
		Lots:        store,
		Allocations: store,
		Converter:   converter,
		Locker:      locker,
		Publisher:   e.events,
		Logger:      logger,
	})

	logger.Debug("scenario loaded",
		zap.String("dir", dir),
		zap.Int("recipes", len(scenario.Recipes)),
		zap.Int("items", len(scenario.Items)),
		zap.Int("lots", len(scenario.Lots)),
		zap.Int("conversions", len(scenario.Conversions)),
		zap.String("store", env.Store.Driver),
		zap.Bool("redis_lock", env.Redis.Addr != ""),
	)
	return e, nil
}

func (e *engine) openStore(ctx context.Context, cfg config.StoreConfig) (ledgerStore, error) {
	switch cfg.Driver {
	case "memory", "":
		return memory.NewLedgerStore(), nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		e.closers = append(e.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// openLocker returns nil, leaving the in-process lock, when no Redis address is configured
func (e *engine) openLocker(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (services.LotLocker, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	e.closers = append(e.closers, client.Close)
	return locking.NewRedisLocker(client, cfg.LockTTL, logger.Named("lock")), nil
}

// Close releases the store and lock connections
func (e *engine) Close() error {
	var firstErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.closers = nil
	return firstErr
}
