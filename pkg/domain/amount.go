package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "sealproof/pkg/domain-errors"
)

// Amount is a monetary value in minor units (cents). Check amounts are
// exchanged as normalized fixed-point strings with exactly two fraction
// digits and never as binary floats; parsing rejects anything else so a
// canonical rendering is guaranteed to round-trip.
type Amount int64

// ParseAmount parses a normalized decimal string like "15000.00".
// Rejected: signs, exponents, missing or over-long fraction, leading zeros.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") || strings.ContainsAny(s, "eE") {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be a normalized decimal")
	}
	parts := strings.Split(s, ".")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must carry exactly two fraction digits")
	}
	intPart, fracPart := parts[0], parts[1]
	if intPart == "" || (len(intPart) > 1 && strings.HasPrefix(intPart, "0")) {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be a normalized decimal")
	}
	intVal, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be a normalized decimal")
	}
	fracVal, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be a normalized decimal")
	}
	if intVal > (1<<62)/100 {
		return 0, dErrors.New(dErrors.CodeValidation, "amount out of range")
	}
	return Amount(intVal*100 + fracVal), nil
}

// String renders the amount as a fixed-point decimal with two fraction
// digits. This rendering is the canonical form used for hashing.
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", int64(a)/100, int64(a)%100)
}

// GreaterOrEqual reports a >= other; used for dual-control thresholds.
func (a Amount) GreaterOrEqual(other Amount) bool { return a >= other }
