package types

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Amount is a 256-bit unsigned token quantity in the token's smallest
// unit. It round-trips through Postgres as numeric(78,0) and through
// JSON as a decimal string.
type Amount struct {
	value uint256.Int
}

// NewAmount wraps a uint256 value. A nil input yields zero.
func NewAmount(v *uint256.Int) Amount {
	var a Amount
	if v != nil {
		a.value.Set(v)
	}
	return a
}

// NewAmountFromUint64 builds an Amount from a uint64.
func NewAmountFromUint64(v uint64) Amount {
	var a Amount
	a.value.SetUint64(v)
	return a
}

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(value string) (Amount, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Amount{}, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(v, "-") {
		return Amount{}, fmt.Errorf("amount %q is negative", value)
	}
	parsed, err := uint256.FromDecimal(v)
	if err != nil {
		return Amount{}, fmt.Errorf("amount %q is not a base-10 integer: %w", value, err)
	}
	return NewAmount(parsed), nil
}

// Int returns a copy of the underlying uint256.
func (a Amount) Int() *uint256.Int {
	return new(uint256.Int).Set(&a.value)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// Cmp compares a against other, returning -1, 0 or 1.
func (a Amount) Cmp(other Amount) int {
	return a.value.Cmp(&other.value)
}

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	var out Amount
	out.value.Add(&a.value, &other.value)
	return out
}

// Sub returns a - other. Callers must ensure other <= a.
func (a Amount) Sub(other Amount) Amount {
	var out Amount
	out.value.Sub(&a.value, &other.value)
	return out
}

// String renders the amount as a base-10 string.
func (a Amount) String() string {
	return a.value.Dec()
}

// Format renders the amount in display units given the token's decimals,
// e.g. 1000000 with 6 decimals renders "1".
func (a Amount) Format(decimals int32) string {
	d, err := decimal.NewFromString(a.value.Dec())
	if err != nil {
		return a.value.Dec()
	}
	return d.Shift(-decimals).String()
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.value.Dec(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot scan negative %d into Amount", v)
		}
		*a = NewAmountFromUint64(uint64(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}

// MarshalJSON renders the amount as a JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.value.Dec() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or bare integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "null" {
		*a = Amount{}
		return nil
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// GormDataType tells gorm how to map the column.
func (Amount) GormDataType() string {
	return "numeric(78,0)"
}
