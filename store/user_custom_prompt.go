package store

import "time"

// UserCustomPrompt is a per-user prompt prefix layered on top of a system
// instruction. The tuple (user_id, system_instruction_id) is unique across
// active rows.
type UserCustomPrompt struct {
	ID                  int32
	UserID              int32
	SystemInstructionID int32
	Name                string
	Description         *string
	Content             string
	IsActive            bool
	IsDefault           bool
	SortOrder           int32
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// FindUserCustomPrompt specifies the conditions for finding custom prompts.
type FindUserCustomPrompt struct {
	ID                  *int32
	UserID              *int32
	SystemInstructionID *int32
	IsActive            *bool
	Limit               int
}

// UpdateUserCustomPrompt carries partial updates; nil fields are left untouched.
type UpdateUserCustomPrompt struct {
	ID        int32
	UserID    int32
	Name      *string
	Content   *string
	IsActive  *bool
	IsDefault *bool
	SortOrder *int32
}
