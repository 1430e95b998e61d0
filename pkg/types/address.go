package types

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of a wallet address.
const AddressLength = 20

// Address is a 20-byte wallet or token identifier, stored lowercase hex
// with a 0x prefix.
type Address string

// ZeroAddress is the sentinel "no account" address.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes a hex address string.
func ParseAddress(value string) (Address, error) {
	v := strings.TrimSpace(value)
	if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") {
		return "", fmt.Errorf("address %q missing 0x prefix", value)
	}
	body := v[2:]
	if len(body) != AddressLength*2 {
		return "", fmt.Errorf("address %q has %d hex chars, want %d", value, len(body), AddressLength*2)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("address %q is not hex: %w", value, err)
	}
	return Address("0x" + strings.ToLower(body)), nil
}

// AddressFromBytes builds an Address from its raw 20 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return "", fmt.Errorf("address needs %d bytes, got %d", AddressLength, len(b))
	}
	return Address("0x" + hex.EncodeToString(b)), nil
}

// Bytes returns the raw 20 bytes of the address.
func (a Address) Bytes() ([]byte, error) {
	parsed, err := ParseAddress(string(a))
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(string(parsed)[2:])
}

// IsZero reports whether the address is empty or the zero account.
func (a Address) IsZero() bool {
	if a == "" {
		return true
	}
	normalized, err := ParseAddress(string(a))
	if err != nil {
		return false
	}
	return normalized == ZeroAddress
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	if a == "" {
		return "", nil
	}
	parsed, err := ParseAddress(string(a))
	if err != nil {
		return nil, err
	}
	return string(parsed), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ""
		return nil
	case string:
		*a = Address(v)
		return nil
	case []byte:
		*a = Address(string(v))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}
