package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus tracks collection of a chargeable amount.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusWaived  PaymentStatus = "WAIVED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPaid,
	PaymentStatusPending,
	PaymentStatusPartial,
	PaymentStatusWaived,
}

func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known payment status.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOutstanding reports whether money is still owed.
func (s PaymentStatus) IsOutstanding() bool {
	return s == PaymentStatusPending || s == PaymentStatusPartial
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	normalized := PaymentStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentMode is how a chargeable amount was collected.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCheque PaymentMode = "CHEQUE"
	PaymentModeOnline PaymentMode = "ONLINE"
	PaymentModeUPI    PaymentMode = "UPI"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCheque,
	PaymentModeOnline,
	PaymentModeUPI,
}

func (m PaymentMode) String() string {
	return string(m)
}

func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

func ParsePaymentMode(value string) (PaymentMode, error) {
	normalized := PaymentMode(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
