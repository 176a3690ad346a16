package entities

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnmappedIngredient = errors.New("ingredient has no inventory mapping")
	ErrIncompatibleUnits  = errors.New("incompatible units")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrLotNotFound        = errors.New("lot not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrSelfConsumption    = errors.New("lot was produced by the consuming run")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidDraft       = errors.New("invalid allocation draft")
	ErrRunNotFound        = errors.New("production run not found")
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrItemNotFound       = errors.New("inventory item not found")
)

// ConversionError describes a quantity that could not be expressed in the target unit
type ConversionError struct {
	Quantity decimal.Decimal
	FromUnit string
	ToUnit   string
	ItemID   string
	Reason   string
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %s %s to %s", e.Quantity.String(), e.FromUnit, e.ToUnit)
	if e.ItemID != "" {
		msg += fmt.Sprintf(" for item %s", e.ItemID)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return ErrIncompatibleUnits
}

// ErrorKind classifies an AllocationError
type ErrorKind int

const (
	KindInvalidDraft ErrorKind = iota
	KindInsufficientStock
	KindLotNotFound
	KindAllocationNotFound
	KindIncompatibleUnits
	KindSelfConsumption
	KindStore
)

// String method for ErrorKind enum
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidDraft:
		return "InvalidDraft"
	case KindInsufficientStock:
		return "InsufficientStock"
	case KindLotNotFound:
		return "LotNotFound"
	case KindAllocationNotFound:
		return "AllocationNotFound"
	case KindIncompatibleUnits:
		return "IncompatibleUnits"
	case KindSelfConsumption:
		return "SelfConsumptionRejected"
	case KindStore:
		return "Store"
	default:
		return "Unknown"
	}
}

// AllocationError is returned by every ledger mutation that was rejected.
// The lot and the ledger are untouched when one is returned.
type AllocationError struct {
	Kind         ErrorKind
	RunID        string
	LineID       string
	LotID        string
	AllocationID string
	Err          error
}

func (e *AllocationError) Error() string {
	switch {
	case e.AllocationID != "":
		return fmt.Sprintf("%s: allocation %s: %v", e.Kind, e.AllocationID, e.Err)
	case e.LineID != "":
		return fmt.Sprintf("%s: run %s line %s lot %s: %v", e.Kind, e.RunID, e.LineID, e.LotID, e.Err)
	default:
		return fmt.Sprintf("%s: run %s lot %s: %v", e.Kind, e.RunID, e.LotID, e.Err)
	}
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// KindOf maps an error chain onto the ErrorKind a caller would act on
func KindOf(err error) ErrorKind {
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return allocErr.Kind
	}
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrLotNotFound):
		return KindLotNotFound
	case errors.Is(err, ErrAllocationNotFound):
		return KindAllocationNotFound
	case errors.Is(err, ErrIncompatibleUnits):
		return KindIncompatibleUnits
	case errors.Is(err, ErrSelfConsumption):
		return KindSelfConsumption
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidDraft):
		return KindInvalidDraft
	default:
		return KindStore
	}
}
