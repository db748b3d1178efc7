package domain

import "time"

// User models an account that can authenticate and publish listings.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"-"`
}

// PublicProfile is the subset of a User that is safe to return to clients.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Profile returns the client-facing view of u.
func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}
