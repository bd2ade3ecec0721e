package cart

import "encoding/json"

// Outcome is the result of a quantity or removal operation.
type Outcome int

const (
	NotFound Outcome = iota
	Changed
	Removed
	// Declined means the user refused the removal; nothing was written.
	Declined
	// Failed means the store rejected the write; the previous cart is intact.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	case Declined:
		return "declined"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mutated reports whether the cart was written.
func (o Outcome) Mutated() bool {
	return o == Changed || o == Removed
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}
