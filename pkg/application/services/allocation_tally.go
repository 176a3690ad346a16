package services

import (
	"sort"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// AllocationTally groups a run's allocations by recipe line.
// Ad-hoc allocations are kept under the empty line id.
type AllocationTally map[string][]*entities.Allocation

// NewAllocationTally groups allocations, keeping their order within each line
func NewAllocationTally(allocations []*entities.Allocation) AllocationTally {
	tally := make(AllocationTally)
	for _, allocation := range allocations {
		tally[allocation.LineID] = append(tally[allocation.LineID], allocation)
	}
	return tally
}

// Line returns the allocations recorded against lineID
func (t AllocationTally) Line(lineID string) []*entities.Allocation {
	if lineID == "" {
		return nil
	}
	return t[lineID]
}

// AdHoc returns allocations not attributed to any line
func (t AllocationTally) AdHoc() []*entities.Allocation {
	return t[""]
}

// Size returns the total number of allocations
func (t AllocationTally) Size() int {
	n := 0
	for _, allocations := range t {
		n += len(allocations)
	}
	return n
}

// LotIDs returns every referenced lot id once, sorted
func (t AllocationTally) LotIDs() []string {
	seen := make(map[string]bool)
	for _, allocations := range t {
		for _, allocation := range allocations {
			seen[allocation.LotID] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
