package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balances is a user's (total, locked) pair. Available balance is derived,
// never stored.
type Balances struct {
	Balance Amount `json:"balance"`
	Locked  Amount `json:"lockedBalance"`
}

// Available returns balance − locked.
func (b Balances) Available() Amount {
	avail, err := b.Balance.Sub(b.Locked)
	if err != nil {
		// locked ≤ balance is enforced at every write; a violation here is a
		// programmer error.
		panic(err)
	}
	return avail
}

// Validate enforces the balance invariants: balance ≥ 0 (by Amount
// construction) and locked ≤ balance.
func (b Balances) Validate() error {
	if b.Locked.Cmp(b.Balance) > 0 {
		return ErrInternal("locked balance exceeds total balance", nil)
	}
	return nil
}

// User is a hub identity with a monetary balance. Created on first
// authentication for a new external subject; never deleted.
type User struct {
	ID             uuid.UUID `json:"userId"`
	ExternalAuthID string    `json:"-"`
	DisplayName    string    `json:"displayName"`
	Balances
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlatformAccountName is the display name reserved for the platform fee
// account.
const PlatformAccountName = "platform"
