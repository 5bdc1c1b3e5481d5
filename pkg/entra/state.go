package entra

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

// SessionStateKey is the session key holding the in-flight CSRF state value.
// One value per redirect; consumed exactly once on the callback leg.
const SessionStateKey = "entra_be_auth_state"

// GenerateState returns a cryptographically random opaque state value.
func GenerateState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.InternalWrap(err, "failed to generate state")
	}
	return hex.EncodeToString(raw), nil
}

// ValidateState reports whether the state echoed by the provider pairs with
// the session-stored one: both must be present and exactly equal. Missing
// either side is a mismatch.
func ValidateState(sessionState, returnedState string) bool {
	return sessionState != "" && returnedState != "" && sessionState == returnedState
}
