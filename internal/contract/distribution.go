package contract

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
)

// WinnerPayout is one winner's share, in results order.
type WinnerPayout struct {
	UserID uuid.UUID
	Amount domain.Amount
}

// Distribution is the validated money plan for a settlement.
type Distribution struct {
	PlatformFee Amount
	PrizePool   Amount
	Winners     []WinnerPayout
}

// Amount aliases the domain money type for readability inside this package.
type Amount = domain.Amount

var bpsDenominator = big.NewInt(10_000)

// PlatformFee computes floor(pot × bps / 10000). Deterministic round-down.
func PlatformFee(pot Amount, bps int32) Amount {
	fee := new(big.Int).Mul(pot.BigInt(), big.NewInt(int64(bps)))
	fee.Quo(fee, bpsDenominator)
	a, err := domain.NewAmountFromBig(fee)
	if err != nil {
		// pot ≥ 0 and 0 ≤ bps ≤ 10000, so the product is non-negative.
		panic(err)
	}
	return a
}

// SplitPrize splits prizePool evenly across n winners; the remainder is
// handed out one unit each to the first winners.
func SplitPrize(prizePool Amount, n int) []Amount {
	quo, rem := new(big.Int).QuoRem(prizePool.BigInt(), big.NewInt(int64(n)), new(big.Int))
	shares := make([]Amount, n)
	one := big.NewInt(1)
	for i := 0; i < n; i++ {
		share := new(big.Int).Set(quo)
		if int64(i) < rem.Int64() {
			share.Add(share, one)
		}
		a, err := domain.NewAmountFromBig(share)
		if err != nil {
			panic(err)
		}
		shares[i] = a
	}
	return shares
}

// ComputeDistribution validates a result set against a live session and
// produces the money plan: platform fee, prize pool, and per-winner payouts.
//
// Results must cover exactly the session's player set. Either no winner
// carries an explicit winAmount (default even split) or every winner does
// (and the amounts must sum to the prize pool).
func ComputeDistribution(session *domain.GameSession, contract *domain.Contract, results []domain.PlayerResult) (*Distribution, error) {
	if len(results) != len(session.Players) {
		return nil, domain.ErrValidation(fmt.Sprintf(
			"results cover %d players, session has %d", len(results), len(session.Players)))
	}

	seen := make(map[uuid.UUID]bool, len(results))
	for _, r := range results {
		if seen[r.PlayerID] {
			return nil, domain.ErrValidation("duplicate player in results: " + r.PlayerID.String())
		}
		seen[r.PlayerID] = true
		if session.Player(r.PlayerID) == nil {
			return nil, domain.ErrValidation("player not in session: " + r.PlayerID.String())
		}
	}

	var winners []domain.PlayerResult
	explicit := 0
	for _, r := range results {
		if !r.IsWinner {
			if r.WinAmount != nil && !r.WinAmount.IsZero() {
				return nil, domain.ErrValidation("non-winner " + r.PlayerID.String() + " has a winAmount")
			}
			continue
		}
		winners = append(winners, r)
		if r.WinAmount != nil {
			explicit++
		}
	}
	if len(winners) == 0 {
		return nil, domain.ErrValidation("at least one winner is required")
	}
	if explicit != 0 && explicit != len(winners) {
		return nil, domain.ErrValidation("either every winner or no winner may carry an explicit winAmount")
	}

	fee := PlatformFee(session.TotalPot, contract.PlatformFeeBps)
	prizePool, err := session.TotalPot.Sub(fee)
	if err != nil {
		return nil, domain.ErrInternal("platform fee exceeds pot", err)
	}

	dist := &Distribution{PlatformFee: fee, PrizePool: prizePool}

	if explicit == 0 {
		shares := SplitPrize(prizePool, len(winners))
		for i, w := range winners {
			dist.Winners = append(dist.Winners, WinnerPayout{UserID: w.PlayerID, Amount: shares[i]})
		}
		return dist, nil
	}

	sum := domain.Zero
	for _, w := range winners {
		sum = sum.Add(*w.WinAmount)
		dist.Winners = append(dist.Winners, WinnerPayout{UserID: w.PlayerID, Amount: *w.WinAmount})
	}
	if !sum.Equal(prizePool) {
		return nil, domain.ErrValidation(fmt.Sprintf(
			"explicit winAmounts sum to %s, prize pool is %s", sum, prizePool))
	}
	return dist, nil
}
