package entity

import "time"

// User is an account. Password holds a bcrypt hash and must never leave the
// service layer; use Public for anything returned to callers.
//
// Email is unique across users and compared case-sensitively.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Kind() Kind             { return KindUser }
func (u *User) EntityID() int64        { return u.ID }
func (u *User) CreatedTime() time.Time { return u.CreatedAt }

func (u *User) Assign(id int64, now time.Time) {
	u.ID = id
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.UTC()
	}
}

// PublicUser is the caller-facing view of a User.
type PublicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}
