package store

import "time"

// SystemInstruction represents a system-level persona prompt for the assistant.
// At most one instruction may be the active default at any time; setting a new
// default clears prior defaults in the same transaction.
type SystemInstruction struct {
	ID          int32
	Name        string
	Description *string
	Content     string
	IsActive    bool
	IsDefault   bool
	SortOrder   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FindSystemInstruction specifies the conditions for finding instructions.
type FindSystemInstruction struct {
	ID        *int32
	IsActive  *bool
	IsDefault *bool
	Limit     int
}

// UpdateSystemInstruction carries partial updates; nil fields are left untouched.
type UpdateSystemInstruction struct {
	ID          int32
	Name        *string
	Description *string
	Content     *string
	IsActive    *bool
	IsDefault   *bool
	SortOrder   *int32
}
