package enums

import (
	"fmt"
	"strings"
)

// TransferStatus tracks hand-over of a part received on behalf of someone else.
type TransferStatus string

const (
	TransferStatusPending     TransferStatus = "PENDING"
	TransferStatusTransferred TransferStatus = "TRANSFERRED"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusTransferred,
}

func (s TransferStatus) String() string {
	return string(s)
}

func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseTransferStatus(value string) (TransferStatus, error) {
	normalized := TransferStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}

// SPUStatus mirrors the SPU category a serial sits in.
type SPUStatus string

const (
	SPUStatusPending SPUStatus = "PENDING"
	SPUStatusCleared SPUStatus = "CLEARED"
)

// SPUStatusFor derives the SPU status from the category. It returns an empty
// status for non SPU categories.
func SPUStatusFor(category Category) SPUStatus {
	switch category {
	case CategorySPUPending:
		return SPUStatusPending
	case CategorySPUCleared:
		return SPUStatusCleared
	default:
		return ""
	}
}
