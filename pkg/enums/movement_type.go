package enums

import "fmt"

// MovementType tags a serial movement ledger entry.
type MovementType string

const (
	MovementTypeInitialEntry   MovementType = "INITIAL_ENTRY"
	MovementTypeCategorized    MovementType = "CATEGORIZED"
	MovementTypeCategoryChange MovementType = "CATEGORY_CHANGE"
	MovementTypeContextUpdate  MovementType = "CONTEXT_UPDATE"
	MovementTypePaymentUpdate  MovementType = "PAYMENT_UPDATE"
)

var validMovementTypes = []MovementType{
	MovementTypeInitialEntry,
	MovementTypeCategorized,
	MovementTypeCategoryChange,
	MovementTypeContextUpdate,
	MovementTypePaymentUpdate,
}

func (t MovementType) String() string {
	return string(t)
}

// IsValid reports whether the value matches a known movement type.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}

// TransitionMovementType picks the movement tag for a category change out of from.
func TransitionMovementType(from Category) MovementType {
	if from == CategoryUncategorized {
		return MovementTypeCategorized
	}
	return MovementTypeCategoryChange
}
