package entities

// FulfillmentState classifies how much of a line's need has been allocated
type FulfillmentState int

const (
	Unfulfilled FulfillmentState = iota
	Partial
	Fulfilled
	NotTrackable
	NeedsAttention
)

// String method for FulfillmentState enum
func (s FulfillmentState) String() string {
	switch s {
	case Unfulfilled:
		return "Unfulfilled"
	case Partial:
		return "Partial"
	case Fulfilled:
		return "Fulfilled"
	case NotTrackable:
		return "NotTrackable"
	case NeedsAttention:
		return "NeedsAttention"
	default:
		return "Unknown"
	}
}

// Trackable reports whether the state counts toward aggregate completion
func (s FulfillmentState) Trackable() bool {
	return s != NotTrackable
}
