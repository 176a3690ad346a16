package services

import (
	"context"
	"testing"
	"time"

	testhelpers "github.com/vsinha/batchalloc/pkg/application/services/testing"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
)

type fixture struct {
	data      *testhelpers.BakeryData
	converter *domainservices.UnitConverter
	service   *ProductionService
}

func newFixture(t *testing.T, data *testhelpers.BakeryData, lots ...*entities.Lot) *fixture {
	t.Helper()

	converter := domainservices.NewUnitConverter()
	if err := converter.RegisterItemConversion("MILK", "l", "kg", testhelpers.Qty("1.03")); err != nil {
		t.Fatalf("Failed to register milk density: %v", err)
	}
	if err := data.Ledger.LoadLots(lots); err != nil {
		t.Fatalf("Failed to load lots: %v", err)
	}

	clock := testhelpers.BaseTime.Add(24 * time.Hour)
	service := NewProductionService(ServiceConfig{
		Recipes:     data.Recipes,
		Catalog:     data.Catalog,
		Runs:        data.Runs,
		Lots:        data.Ledger,
		Allocations: data.Ledger,
		Converter:   converter,
		Clock: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})

	return &fixture{data: data, converter: converter, service: service}
}

func (f *fixture) startRun(t *testing.T, recipeID, planned, unit string) *entities.ProductionRun {
	t.Helper()
	run, err := f.service.StartRun(context.Background(), recipeID, testhelpers.Qty(planned), unit)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}
	return run
}

func (f *fixture) remaining(t *testing.T, lotID string) string {
	t.Helper()
	lot, err := f.data.Ledger.GetLot(context.Background(), lotID)
	if err != nil {
		t.Fatalf("Failed to get lot %s: %v", lotID, err)
	}
	return lot.RemainingQuantity.String()
}

func draft(lineID, lotID, qty, unit string) entities.AllocationDraft {
	return entities.AllocationDraft{LineID: lineID, LotID: lotID, Quantity: testhelpers.Qty(qty), Unit: unit}
}

func flourLots() []*entities.Lot {
	return []*entities.Lot{
		testhelpers.MustCreateLot("F-OLD", "FLOUR", "3", "kg", testhelpers.BaseTime, "", "gluten"),
		testhelpers.MustCreateLot("F-NEW", "FLOUR", "5", "kg", testhelpers.BaseTime.Add(48*time.Hour), "", "gluten", "sesame"),
	}
}
