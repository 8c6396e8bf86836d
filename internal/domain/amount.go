package domain

import (
	"fmt"
	"math/big"
)

// Amount is a non-negative arbitrary-precision integer number of currency
// units. It serializes as a decimal string so values survive JSON boundaries
// without floating-point loss.
type Amount struct {
	v *big.Int
}

// Zero is the zero amount.
var Zero = Amount{}

// NewAmount creates an Amount from a non-negative int64. Panics on negative
// input; callers pass literals or already-validated values.
func NewAmount(v int64) Amount {
	if v < 0 {
		panic(fmt.Sprintf("domain: negative amount %d", v))
	}
	return Amount{v: big.NewInt(v)}
}

// NewAmountFromBig creates an Amount from a big.Int, copying the value.
func NewAmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, fmt.Errorf("amount is nil")
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount %s is negative", v.String())
	}
	return Amount{v: new(big.Int).Set(v)}, nil
}

// ParseAmount parses a decimal-string amount. Rejects empty strings, signs,
// and any non-digit characters.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("amount is empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return Amount{}, fmt.Errorf("invalid amount %q: must be a non-negative decimal integer", s)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{v: v}, nil
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.big())
}

// String returns the decimal representation.
func (a Amount) String() string {
	return a.big().String()
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.big().Sign() > 0
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// Equal reports whether a and b are numerically equal.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a − b, or an error if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := new(big.Int).Sub(a.big(), b.big())
	if r.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount underflow: %s - %s", a, b)
	}
	return Amount{v: r}, nil
}

// MulInt returns a × n for non-negative n.
func (a Amount) MulInt(n int64) Amount {
	if n < 0 {
		panic(fmt.Sprintf("domain: negative multiplier %d", n))
	}
	return Amount{v: new(big.Int).Mul(a.big(), big.NewInt(n))}
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("amount must be a JSON string, got %s", string(data))
	}
	parsed, err := ParseAmount(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
