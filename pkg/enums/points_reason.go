package enums

import "fmt"

// PointsReason classifies entries in a customer's points ledger.
type PointsReason string

const (
	PointsReasonOrderEarn  PointsReason = "order_earn"
	PointsReasonRedemption PointsReason = "redemption"
	PointsReasonAdjustment PointsReason = "adjustment"
)

var validPointsReasons = []PointsReason{
	PointsReasonOrderEarn,
	PointsReasonRedemption,
	PointsReasonAdjustment,
}

// IsValid reports whether the value is a known PointsReason.
func (p PointsReason) IsValid() bool {
	for _, candidate := range validPointsReasons {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePointsReason converts raw input into a PointsReason.
func ParsePointsReason(value string) (PointsReason, error) {
	for _, candidate := range validPointsReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid points reason %q", value)
}
