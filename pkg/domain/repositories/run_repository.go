package repositories

import (
	"context"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// RunRepository stores production runs
type RunRepository interface {
	// GetRun returns entities.ErrRunNotFound when the id is unknown.
	GetRun(ctx context.Context, runID string) (*entities.ProductionRun, error)
	SaveRun(ctx context.Context, run *entities.ProductionRun) error
}
