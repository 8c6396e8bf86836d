package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/plutohub/platform/internal/domain"
)

// NumericToAmount converts a pgtype.Numeric (from a numeric(30,0) column) to
// a domain.Amount. Returns an error if the value is NULL, negative, or
// carries fractional digits.
func NumericToAmount(n pgtype.Numeric) (domain.Amount, error) {
	if !n.Valid {
		return domain.Amount{}, fmt.Errorf("numeric value is NULL")
	}

	// pgtype.Numeric stores value as Int * 10^Exp.
	bi := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil)
		bi.Mul(bi, multiplier)
	} else if n.Exp < 0 {
		return domain.Amount{}, fmt.Errorf("numeric value has fractional digits (exp %d)", n.Exp)
	}

	amount, err := domain.NewAmountFromBig(bi)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("convert numeric: %w", err)
	}
	return amount, nil
}

// AmountToNumeric converts a domain.Amount for writing to a numeric(30,0)
// column.
func AmountToNumeric(a domain.Amount) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              a.BigInt(),
		Exp:              0,
		NaN:              false,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
