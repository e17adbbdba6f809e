package models

import "time"

// User is an account known to the auth service
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Belt         BeltLevel `json:"belt"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// UserUpdate carries the editable fields of a user; nil fields are left untouched
type UserUpdate struct {
	Name *string    `json:"name,omitempty"`
	Belt *BeltLevel `json:"belt,omitempty"`
}

// LoginRequest is the body of a login call
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the public user fields
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// RegisterRequest is the body of an admin user registration
type RegisterRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Name     string    `json:"name"`
	Belt     BeltLevel `json:"belt"`
}
