package booking

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (cents).
type Money int64

// FromFloat converts a major-unit float to Money rounding half away from zero. Decimal text
// goes through UnmarshalJSON, which does not lose the exact halves.
func FromFloat(amount float64) Money {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	if amount < 0 {
		return -Money(math.Floor(-amount*100 + 0.5))
	}
	return Money(math.Floor(amount*100 + 0.5))
}

// Float64 returns the amount in major units.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a decimal number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid money amount %q: %w", string(data), err)
		}
		*m = FromFloat(f)
		return nil
	}
	v, err := parseDecimal(s)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", string(data), err)
	}
	*m = v
	return nil
}

// parseDecimal reads a plain decimal major-unit amount, rounding the third fraction digit half
// away from zero.
func parseDecimal(s string) (Money, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, errors.New("empty amount")
	}
	if whole == "" {
		whole = "0"
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("unexpected character %q", r)
		}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	frac += "000"
	cents := int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, strconv.ErrRange
	}
	v := Money(units*100 + cents)
	if neg {
		v = -v
	}
	return v, nil
}

// applyPercentOff returns amount * (100 - percent) / 100 rounded half-up. amount must not be negative.
func applyPercentOff(amount Money, percent int) Money {
	return Money((int64(amount)*int64(100-percent) + 50) / 100)
}
