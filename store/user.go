package store

import "time"

// User represents a registered account.
type User struct {
	ID           int32
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	LastLoginIP  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FindUser specifies the conditions for finding a user.
type FindUser struct {
	ID       *int32
	Username *string
	Email    *string
}

// UpdateUser mutates login bookkeeping fields.
type UpdateUser struct {
	ID          int32
	LastLoginAt *time.Time
	LastLoginIP *string
}
