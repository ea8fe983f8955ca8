package entity

import "time"

// Kind identifies a persisted entity type. The set of kinds is closed: values
// can only be obtained from the package-level variables below.
type Kind struct {
	name string
	ttl  time.Duration
}

var (
	// KindTask documents expire after 30 days without a write.
	KindTask = Kind{name: "task", ttl: 30 * 24 * time.Hour}
	// KindUser documents never expire.
	KindUser = Kind{name: "user"}
)

// String returns the key namespace of the kind, e.g. "task".
func (k Kind) String() string { return k.name }

// TTL is the expiry attached on every write. Zero means no expiry.
func (k Kind) TTL() time.Duration { return k.ttl }

// WithTTL returns a copy of the kind with a different expiry policy.
func (k Kind) WithTTL(ttl time.Duration) Kind {
	k.ttl = ttl
	return k
}

// Entity is implemented by every persisted document type.
type Entity interface {
	Kind() Kind
	EntityID() int64
	CreatedTime() time.Time
	// Assign stamps the allocated id and, when unset, the creation time.
	Assign(id int64, now time.Time)
}

// Owned entities carry the id of the user that created them.
type Owned interface {
	Entity
	OwnerID() int64
	SetOwner(userID int64)
}
