package store

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// GHSScale is the number of decimal places kept for cedi amounts.
const GHSScale = int32(2)

func ParseGHS(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "GH₵")
	s = strings.TrimPrefix(s, "GHS")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("amount is not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	if d.Exponent() < -GHSScale {
		return decimal.Zero, errors.New("amount supports at most 2 decimal places")
	}
	return d.Truncate(GHSScale), nil
}

func FormatGHS(d decimal.Decimal) string {
	return d.StringFixed(GHSScale)
}

func sumGHS(vs []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vs {
		total = total.Add(v)
	}
	return total.Truncate(GHSScale)
}
