package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// setupTokenBytes is the entropy of a one-time password-setup credential.
const setupTokenBytes = 32

// NewSetupToken generates the plaintext one-time credential handed to a new
// tenant admin. Only a bcrypt hash of it is stored; the plaintext leaves the
// system exactly once, through the provisioning notification path.
func NewSetupToken() (string, error) {
	buf := make([]byte, setupTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate setup token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
