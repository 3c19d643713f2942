package store

import (
	"context"
	"database/sql"
	"time"
)

// Driver is an interface for database driver.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	GetUser(ctx context.Context, find *FindUser) (*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) error

	// SystemInstruction model related methods.
	CreateSystemInstruction(ctx context.Context, create *SystemInstruction) (*SystemInstruction, error)
	ListSystemInstructions(ctx context.Context, find *FindSystemInstruction) ([]*SystemInstruction, error)
	UpdateSystemInstruction(ctx context.Context, update *UpdateSystemInstruction) (*SystemInstruction, error)
	DeleteSystemInstruction(ctx context.Context, id int32) error

	// UserCustomPrompt model related methods.
	CreateUserCustomPrompt(ctx context.Context, create *UserCustomPrompt) (*UserCustomPrompt, error)
	ListUserCustomPrompts(ctx context.Context, find *FindUserCustomPrompt) ([]*UserCustomPrompt, error)
	UpdateUserCustomPrompt(ctx context.Context, update *UpdateUserCustomPrompt) (*UserCustomPrompt, error)
	DeleteUserCustomPrompt(ctx context.Context, id int32, userID int32) error

	// ConversationMemory model related methods.
	CreateConversationMemory(ctx context.Context, create *ConversationMemory) (*ConversationMemory, error)
	ListConversationMemories(ctx context.Context, find *FindConversationMemory) ([]*ConversationMemory, error)
	SoftDeleteConversationMemory(ctx context.Context, id int64, userID int32) error
	BumpMemoryAccess(ctx context.Context, ids []int64) (int64, error)
	SoftDeleteMemoriesBefore(ctx context.Context, userID int32, systemInstructionID *int32, cutoff time.Time) (int64, error)
	SweepDecayedMemories(ctx context.Context, now time.Time) (int64, error)

	// CharacterEmotionState model related methods.
	GetCharacterEmotionState(ctx context.Context, userID, charID int32) (*CharacterEmotionState, error)
	UpsertCharacterEmotionState(ctx context.Context, upsert *UpsertCharacterEmotionState) (*CharacterEmotionState, error)
}
