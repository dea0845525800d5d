package payroll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (paise, cents).
type Money int64

// maxMoney bounds single amounts and their sums, 100 billion in major units,
// so int64 arithmetic on them cannot wrap.
const maxMoney Money = 10_000_000_000_000

// ParseMoney reads a decimal string such as "20000.00". More than two
// fractional digits is rejected rather than rounded.
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than two decimals", ErrInvalidAmount, d.String())
	}
	if minor.Abs().GreaterThan(decimal.NewFromInt(int64(maxMoney))) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d.String())
	}
	return Money(minor.IntPart()), nil
}

// SumMoney adds amounts and fails once the running total leaves the
// supported range.
func SumMoney(values ...Money) (Money, error) {
	var total Money
	for _, v := range values {
		if v > maxMoney || v < -maxMoney {
			return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, v)
		}
		total += v
		if total > maxMoney || total < -maxMoney {
			return 0, fmt.Errorf("%w: total exceeds %s", ErrInvalidAmount, maxMoney)
		}
	}
	return total, nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MulRound multiplies by rate and rounds half away from zero to the minor unit.
func (m Money) MulRound(rate decimal.Decimal) Money {
	return Money(decimal.NewFromInt(int64(m)).Mul(rate).Round(0).IntPart())
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "20000.00" as well as a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
