package identity

import (
	"strings"

	"github.com/vidgen/backend/internal/domain/shared"
)

// DefaultStartingTokens is the token balance granted to every new account.
const DefaultStartingTokens = 300

// User represents an account holding a token balance.
// Tokens is mutated only through the ledger apply path so that it always
// equals the sum of the user's ledger entry deltas.
type User struct {
	shared.BaseEntity
	Email          string
	FullName       string
	HashedPassword string
	Active         bool
	Tokens         int
}

// NewUser creates a new user with the default starting balance
func NewUser(email, fullName, hashedPassword string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	if hashedPassword == "" {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password hash cannot be empty")
	}

	return &User{
		BaseEntity:     shared.NewBaseEntity(),
		Email:          email,
		FullName:       fullName,
		HashedPassword: hashedPassword,
		Active:         false,
		Tokens:         DefaultStartingTokens,
	}, nil
}

// CanAfford reports whether the current balance covers the given cost
func (u *User) CanAfford(cost int) bool {
	return cost >= 0 && u.Tokens >= cost
}

// Activate marks the account as active
func (u *User) Activate() {
	u.Active = true
}
