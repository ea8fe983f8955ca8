package application

import "time"

// Identity is the authenticated caller of a request. It is immutable and only
// produced by Gate.Authenticate or NewIdentity, so every owned operation gets
// its caller as an explicit argument.
type Identity struct {
	userID    int64
	email     string
	token     string
	expiresAt time.Time
}

// NewIdentity builds an identity for trusted in-process callers such as the
// seeder, which act on behalf of a user without a bearer token.
func NewIdentity(userID int64, email string) Identity {
	return Identity{userID: userID, email: email}
}

func (i Identity) UserID() int64        { return i.userID }
func (i Identity) Email() string        { return i.email }
func (i Identity) Token() string        { return i.token }
func (i Identity) ExpiresAt() time.Time { return i.expiresAt }

// Valid is false for the zero Identity.
func (i Identity) Valid() bool { return i.userID > 0 }
