package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// Plan is the serialized form of an ordered list of allocation drafts
type Plan struct {
	RunID  string  `msgpack:"run_id,omitempty"`
	Drafts []Draft `msgpack:"drafts"`
}

// Draft is the wire form of entities.AllocationDraft. Quantity is kept as a
// decimal string so no precision is lost in transit.
type Draft struct {
	LineID   string `msgpack:"line_id,omitempty"`
	LotID    string `msgpack:"lot_id"`
	Quantity string `msgpack:"quantity"`
	Unit     string `msgpack:"unit"`
}

// NewDraft converts a draft to its wire form
func NewDraft(d entities.AllocationDraft) Draft {
	return Draft{
		LineID:   d.LineID,
		LotID:    d.LotID,
		Quantity: d.Quantity.String(),
		Unit:     d.Unit,
	}
}

// ToDraft converts the wire form back to a draft
func (d Draft) ToDraft() (entities.AllocationDraft, error) {
	quantity, err := decimal.NewFromString(d.Quantity)
	if err != nil {
		return entities.AllocationDraft{}, fmt.Errorf("draft for lot %s: invalid quantity %q: %w", d.LotID, d.Quantity, err)
	}
	return entities.AllocationDraft{
		LineID:   d.LineID,
		LotID:    d.LotID,
		Quantity: quantity,
		Unit:     d.Unit,
	}, nil
}

// EncodeDrafts marshals a plan for runID
func EncodeDrafts(runID string, drafts []entities.AllocationDraft) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDrafts(&buf, runID, drafts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDrafts encodes a plan onto w
func WriteDrafts(w io.Writer, runID string, drafts []entities.AllocationDraft) error {
	plan := Plan{RunID: runID, Drafts: make([]Draft, 0, len(drafts))}
	for _, d := range drafts {
		plan.Drafts = append(plan.Drafts, NewDraft(d))
	}

	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&plan); err != nil {
		return fmt.Errorf("failed to encode allocation plan: %w", err)
	}
	return nil
}

// DecodeDrafts unmarshals a plan, returning its run id and drafts in order
func DecodeDrafts(data []byte) (string, []entities.AllocationDraft, error) {
	return ReadDrafts(bytes.NewReader(data))
}

// ReadDrafts decodes a plan from r
func ReadDrafts(r io.Reader) (string, []entities.AllocationDraft, error) {
	var plan Plan
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&plan); err != nil {
		return "", nil, fmt.Errorf("failed to decode allocation plan: %w", err)
	}

	drafts := make([]entities.AllocationDraft, 0, len(plan.Drafts))
	for _, d := range plan.Drafts {
		draft, err := d.ToDraft()
		if err != nil {
			return "", nil, err
		}
		drafts = append(drafts, draft)
	}
	return plan.RunID, drafts, nil
}
