package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// LotCandidate is a lot offered for consumption, tagged when it is rework
type LotCandidate struct {
	Lot      *entities.Lot
	IsRework bool
}

type candidateOptions struct {
	excludeRework bool
}

// CandidateOption narrows the candidate list
type CandidateOption func(*candidateOptions)

// WithoutRework drops lots produced by other runs
func WithoutRework() CandidateOption {
	return func(o *candidateOptions) {
		o.excludeRework = true
	}
}

// BatchSelector lists lots that may be consumed for an item, oldest first.
// It only advises; nothing is reserved or allocated.
type BatchSelector struct {
	lots repositories.LotRepository
}

// NewBatchSelector creates a selector over lots
func NewBatchSelector(lots repositories.LotRepository) *BatchSelector {
	return &BatchSelector{lots: lots}
}

// Candidates returns lots of itemID with stock, FIFO by creation time, never
// including lots produced by excludeRunID.
func (s *BatchSelector) Candidates(ctx context.Context, itemID, excludeRunID string, opts ...CandidateOption) ([]LotCandidate, error) {
	options := candidateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	lots, err := s.lots.ListAvailableLots(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots for item %s: %w", itemID, err)
	}

	candidates := make([]LotCandidate, 0, len(lots))
	for _, lot := range lots {
		if !lot.Available() {
			continue
		}
		if excludeRunID != "" && lot.SourceRunID == excludeRunID {
			continue
		}
		if lot.IsRework() && options.excludeRework {
			continue
		}
		candidates = append(candidates, LotCandidate{Lot: lot, IsRework: lot.IsRework()})
	}

	// FIFO, ties by id
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Lot, candidates[j].Lot
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return candidates, nil
}
