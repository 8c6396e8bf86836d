package domain

import (
	"fmt"
	"regexp"
)

var displayNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// ValidateDisplayName checks the 3–20 char [A-Za-z0-9_-] rule.
func ValidateDisplayName(name string) error {
	if name == "" {
		return fmt.Errorf("display name is required")
	}
	if !displayNameRegex.MatchString(name) {
		return fmt.Errorf("display name must be 3-20 characters of letters, digits, underscore or hyphen")
	}
	return nil
}

// ValidatePositiveAmount checks that an amount is strictly positive.
func ValidatePositiveAmount(a Amount) error {
	if !a.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", a)
	}
	return nil
}

// ValidatePlayerSet checks Execute's player-list preconditions: count within
// the contract bounds and no duplicate ids.
func ValidatePlayerSet(ids []string, minPlayers, maxPlayers int) error {
	if len(ids) < minPlayers || len(ids) > maxPlayers {
		return fmt.Errorf("player count %d outside contract bounds [%d, %d]", len(ids), minPlayers, maxPlayers)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("empty player id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate player id %s", id)
		}
		seen[id] = true
	}
	return nil
}
