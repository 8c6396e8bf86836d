package domain

import (
	"time"

	"github.com/google/uuid"
)

// Game is a registered game backend. Immutable after creation. The stored
// digest is SHA-256 of the game's shared secret and doubles as the MAC key
// for request signing, so the raw secret is never persisted.
type Game struct {
	ID                 uuid.UUID `json:"gameId"`
	Name               string    `json:"name"`
	ClientSecretDigest string    `json:"-"`
	CallbackURL        *string   `json:"callbackUrl,omitempty"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Contract is an immutable economic rule template governing a class of
// matches for a game.
type Contract struct {
	ID             uuid.UUID `json:"contractId"`
	GameID         uuid.UUID `json:"gameId"`
	Name           string    `json:"name"`
	EntryFee       Amount    `json:"entryFee"`
	PlatformFeeBps int32     `json:"platformFeeBps"`
	MinPlayers     int       `json:"minPlayers"`
	MaxPlayers     int       `json:"maxPlayers"`
	TTLSeconds     int       `json:"ttlSeconds"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Validate checks the contract's structural invariants.
func (c Contract) Validate() error {
	fields := map[string]string{}
	if c.Name == "" {
		fields["name"] = "name is required"
	}
	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10000 {
		fields["platformFeeBps"] = "must be between 0 and 10000"
	}
	if c.MinPlayers < 1 {
		fields["minPlayers"] = "must be at least 1"
	}
	if c.MaxPlayers < c.MinPlayers {
		fields["maxPlayers"] = "must be >= minPlayers"
	}
	if c.TTLSeconds <= 0 {
		fields["ttlSeconds"] = "must be positive"
	}
	if len(fields) > 0 {
		return ErrValidationFields("invalid contract", fields)
	}
	return nil
}
