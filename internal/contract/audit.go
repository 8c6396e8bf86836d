package contract

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/domain"
)

// InvariantCheck records a single audit validation.
type InvariantCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// AuditResult is the outcome of replaying a session's ledger trail.
type AuditResult struct {
	SessionID uuid.UUID        `json:"sessionId"`
	Checks    []InvariantCheck `json:"checks"`
	AllPassed bool             `json:"allPassed"`
}

// AuditSession replays a terminal session's ledger entries and validates the
// money-conservation invariants: every locked unit is either returned,
// consumed into a prize, or collected as fee. Pure function over the rows
// BySession returns.
func AuditSession(session *domain.GameSession, entries []domain.LedgerEntry, platformAccountID uuid.UUID) AuditResult {
	sums := map[domain.EntryType]domain.Amount{}
	perPlayerLock := map[uuid.UUID]domain.Amount{}
	perPlayerWin := map[uuid.UUID]domain.Amount{}
	for _, e := range entries {
		sums[e.Type] = sums[e.Type].Add(e.Amount)
		switch e.Type {
		case domain.EntryLock:
			perPlayerLock[e.UserID] = perPlayerLock[e.UserID].Add(e.Amount)
		case domain.EntryWin:
			perPlayerWin[e.UserID] = perPlayerWin[e.UserID].Add(e.Amount)
		case domain.EntryFee:
			if e.UserID != platformAccountID {
				return failed(session.ID, "fee_account",
					"FEE entry posted to non-platform account "+e.UserID.String())
			}
		}
	}

	var checks []InvariantCheck
	add := func(name string, passed bool, detail string) {
		checks = append(checks, InvariantCheck{Name: name, Passed: passed, Detail: detail})
	}

	stakeTotal := domain.Zero
	for _, p := range session.Players {
		stakeTotal = stakeTotal.Add(p.AmountLocked)
		lock := perPlayerLock[p.UserID]
		add("player_lock:"+p.UserID.String(),
			lock.Equal(p.AmountLocked),
			fmt.Sprintf("locked %s, recorded %s", lock, p.AmountLocked))
	}
	add("pot_matches_stakes", stakeTotal.Equal(session.TotalPot),
		fmt.Sprintf("stakes %s, pot %s", stakeTotal, session.TotalPot))
	add("lock_total", sums[domain.EntryLock].Equal(stakeTotal),
		fmt.Sprintf("LOCK sum %s, stakes %s", sums[domain.EntryLock], stakeTotal))

	switch session.Status {
	case domain.SessionSettled:
		add("no_unlock_on_settle", sums[domain.EntryUnlock].IsZero(),
			"UNLOCK sum "+sums[domain.EntryUnlock].String())
		add("stakes_consumed", sums[domain.EntryLose].Equal(sums[domain.EntryLock]),
			fmt.Sprintf("LOSE sum %s, LOCK sum %s", sums[domain.EntryLose], sums[domain.EntryLock]))
		payoutTotal := sums[domain.EntryWin].Add(sums[domain.EntryFee])
		add("conservation", payoutTotal.Equal(session.TotalPot),
			fmt.Sprintf("WIN+FEE %s, pot %s", payoutTotal, session.TotalPot))
		for _, p := range session.Players {
			win := perPlayerWin[p.UserID]
			add("player_win:"+p.UserID.String(),
				win.Equal(p.WinAmount),
				fmt.Sprintf("WIN sum %s, recorded %s", win, p.WinAmount))
		}
	case domain.SessionCancelled, domain.SessionExpired:
		add("stakes_returned", sums[domain.EntryUnlock].Equal(sums[domain.EntryLock]),
			fmt.Sprintf("UNLOCK sum %s, LOCK sum %s", sums[domain.EntryUnlock], sums[domain.EntryLock]))
		noPayout := sums[domain.EntryLose].IsZero() && sums[domain.EntryWin].IsZero() && sums[domain.EntryFee].IsZero()
		add("no_payout_on_refund", noPayout,
			fmt.Sprintf("LOSE %s WIN %s FEE %s", sums[domain.EntryLose], sums[domain.EntryWin], sums[domain.EntryFee]))
	default:
		add("live_session_untouched",
			sums[domain.EntryUnlock].IsZero() && sums[domain.EntryLose].IsZero() &&
				sums[domain.EntryWin].IsZero() && sums[domain.EntryFee].IsZero(),
			"terminal entries present on a live session")
	}

	all := true
	for _, c := range checks {
		if !c.Passed {
			all = false
		}
	}
	return AuditResult{SessionID: session.ID, Checks: checks, AllPassed: all}
}

func failed(sessionID uuid.UUID, name, detail string) AuditResult {
	return AuditResult{
		SessionID: sessionID,
		Checks:    []InvariantCheck{{Name: name, Passed: false, Detail: detail}},
		AllPassed: false,
	}
}
