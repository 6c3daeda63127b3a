package accounts

import "time"

// Account is the identity and credential record for one user. Username is
// the primary key: unique, immutable, case-sensitive.
type Account struct {
	Username     string
	PasswordHash string // opaque bcrypt digest; never logged or returned
	FirstName    string
	LastName     string
	Phone        string
	JoinedAt     time.Time
	LastLoginAt  time.Time

	// Pending reset challenge. Both fields are set together on issuance and
	// cleared together on consumption or expiry; no partial state exists.
	ResetCodeHash    string
	ResetRequestedAt *time.Time
}

// ResetChallenge is the pending reset state read back from the store.
type ResetChallenge struct {
	CodeHash    string
	RequestedAt time.Time
}

// Profile is the public view of an Account, safe to hand to transports.
type Profile struct {
	Username    string
	FirstName   string
	LastName    string
	Phone       string
	JoinedAt    time.Time
	LastLoginAt time.Time
}

// Profile returns the public view of the account.
func (a *Account) Profile() *Profile {
	return &Profile{
		Username:    a.Username,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Phone:       a.Phone,
		JoinedAt:    a.JoinedAt,
		LastLoginAt: a.LastLoginAt,
	}
}
