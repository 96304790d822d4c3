package domain

import "time"

// User is a chat participant. ID and Username are immutable per session;
// presence is the only mutable part and is owned by the user repository.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsOnline     bool
	LastSeen     *time.Time
	CreatedAt    time.Time
}
