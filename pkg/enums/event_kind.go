package enums

import "fmt"

// EventKind tags the two ledger-affecting event variants.
type EventKind string

const (
	EventKindPurchase EventKind = "purchase"
	EventKindSale     EventKind = "sale"
)

var validEventKinds = []EventKind{
	EventKindPurchase,
	EventKindSale,
}

// IsValid reports whether the value matches a known event kind.
func (k EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEventKind converts raw input into EventKind.
func ParseEventKind(value string) (EventKind, error) {
	for _, candidate := range validEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
