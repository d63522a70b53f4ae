package users

import "time"

// User is a registered account. The password is kept only as a bcrypt hash.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserInfo is the persisted per-username entry of the credentials document.
type UserInfo struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password"`
	CreatedAt    time.Time `json:"created_at"`
}
