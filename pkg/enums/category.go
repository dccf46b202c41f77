package enums

import (
	"fmt"
	"strings"
)

// Category is the lifecycle state of a serial.
type Category string

const (
	CategoryUncategorized     Category = "UNCATEGORIZED"
	CategoryInStock           Category = "IN_STOCK"
	CategorySPUPending        Category = "SPU_PENDING"
	CategorySPUCleared        Category = "SPU_CLEARED"
	CategoryAMC               Category = "AMC"
	CategoryOG                Category = "OG"
	CategoryReturn            Category = "RETURN"
	CategoryReturnPending     Category = "RETURN_PENDING"
	CategoryPendingToCheck    Category = "PENDING_TO_CHECK"
	CategoryReceivedForOthers Category = "RECEIVED_FOR_OTHERS"
)

var validCategories = []Category{
	CategoryUncategorized,
	CategoryInStock,
	CategorySPUPending,
	CategorySPUCleared,
	CategoryAMC,
	CategoryOG,
	CategoryReturn,
	CategoryReturnPending,
	CategoryPendingToCheck,
	CategoryReceivedForOthers,
}

// Categories returns every known category in display order.
func Categories() []Category {
	out := make([]Category, len(validCategories))
	copy(out, validCategories)
	return out
}

func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the value is a known category.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsSPU reports whether the category tracks a supplier pending unit.
func (c Category) IsSPU() bool {
	return c == CategorySPUPending || c == CategorySPUCleared
}

// ParseCategory converts raw input into a Category. Matching ignores case and
// surrounding whitespace.
func ParseCategory(value string) (Category, error) {
	normalized := Category(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid category %q", value)
}
