package router

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// stringPtr returns a trimmed pointer or nil when the input is empty.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uuidPtr(id *uuid.UUID) *string {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}

func int64Ptr(value int64) *int64 {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

// centsPtr converts a currency amount to integer minor units.
func centsPtr(amount decimal.Decimal) *int64 {
	return int64Ptr(amount.Shift(2).Round(0).IntPart())
}
