package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// RunRepository provides in-memory production run storage
type RunRepository struct {
	mu   sync.RWMutex
	runs map[string]entities.ProductionRun
}

// NewRunRepository creates a new in-memory run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]entities.ProductionRun)}
}

// Verify interface compliance
var _ repositories.RunRepository = (*RunRepository)(nil)

// GetRun returns a copy of the run with runID
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*entities.ProductionRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrRunNotFound, runID)
	}
	return &run, nil
}

// SaveRun inserts or replaces run
func (r *RunRepository) SaveRun(ctx context.Context, run *entities.ProductionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = *run
	return nil
}
