package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusPending UserStatus = "pending" // Awaiting password setup
	UserStatusActive  UserStatus = "active"
)

// Password cost for bcrypt
const bcryptCost = 12

// SetupTokenTTL is how long a one-time password-setup credential stays valid.
const SetupTokenTTL = 72 * time.Hour

// User represents an account within a tenant. The provisioning worker creates
// the first one for the tenant's admin contact; it starts in pending status
// with a one-time setup credential instead of a password.
type User struct {
	shared.TenantAggregateRoot
	Email               string
	DisplayName         string
	PasswordHash        string // Empty until setup completes
	IsAdmin             bool
	Status              UserStatus
	SetupTokenHash      string // bcrypt hash of the one-time setup token
	SetupTokenExpiresAt *time.Time
	LastLoginAt         *time.Time
}

// NewAdminUser creates the tenant's administrative account in pending status.
// setupToken is the plaintext one-time credential; only its hash is retained.
func NewAdminUser(tenantID uuid.UUID, email, displayName, setupToken string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > 200 || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email is not a valid address")
	}
	if setupToken == "" {
		return nil, shared.NewDomainError("INVALID_SETUP_TOKEN", "Setup token cannot be empty")
	}

	tokenHash, err := bcrypt.GenerateFromPassword([]byte(setupToken), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainError("CREDENTIAL_HASH_ERROR", "Failed to hash setup token")
	}

	expires := time.Now().Add(SetupTokenTTL)
	user := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Email:               email,
		DisplayName:         strings.TrimSpace(displayName),
		IsAdmin:             true,
		Status:              UserStatusPending,
		SetupTokenHash:      string(tokenHash),
		SetupTokenExpiresAt: &expires,
	}

	return user, nil
}

// VerifySetupToken checks a presented one-time credential against the stored
// hash and expiry.
func (u *User) VerifySetupToken(token string) error {
	if u.Status != UserStatusPending || u.SetupTokenHash == "" {
		return shared.ErrInvalidState
	}
	if u.SetupTokenExpiresAt != nil && time.Now().After(*u.SetupTokenExpiresAt) {
		return shared.NewDomainError("SETUP_TOKEN_EXPIRED", "Setup token has expired")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.SetupTokenHash), []byte(token)); err != nil {
		return shared.ErrUnauthorized
	}
	return nil
}

// CompleteSetup sets the user's password and activates the account, consuming
// the one-time setup credential.
func (u *User) CompleteSetup(password string) error {
	if u.Status != UserStatusPending {
		return shared.ErrInvalidState
	}
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return shared.NewDomainError("CREDENTIAL_HASH_ERROR", "Failed to hash password")
	}

	u.PasswordHash = string(hash)
	u.Status = UserStatusActive
	u.SetupTokenHash = ""
	u.SetupTokenExpiresAt = nil
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// VerifyPassword checks a password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLogin records a successful login.
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}
