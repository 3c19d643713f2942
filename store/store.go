package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/konusmate/mate/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) GetDB() *sql.DB {
	return s.driver.GetDB()
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	return s.driver.GetUser(ctx, find)
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) error {
	return s.driver.UpdateUser(ctx, update)
}

func (s *Store) CreateSystemInstruction(ctx context.Context, create *SystemInstruction) (*SystemInstruction, error) {
	return s.driver.CreateSystemInstruction(ctx, create)
}

func (s *Store) ListSystemInstructions(ctx context.Context, find *FindSystemInstruction) ([]*SystemInstruction, error) {
	return s.driver.ListSystemInstructions(ctx, find)
}

// GetSystemInstruction returns the instruction with the given id, or nil when
// it does not exist.
func (s *Store) GetSystemInstruction(ctx context.Context, id int32) (*SystemInstruction, error) {
	list, err := s.driver.ListSystemInstructions(ctx, &FindSystemInstruction{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetDefaultSystemInstruction returns the unique active default instruction,
// or nil when none is configured.
func (s *Store) GetDefaultSystemInstruction(ctx context.Context) (*SystemInstruction, error) {
	isTrue := true
	list, err := s.driver.ListSystemInstructions(ctx, &FindSystemInstruction{
		IsActive:  &isTrue,
		IsDefault: &isTrue,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateSystemInstruction(ctx context.Context, update *UpdateSystemInstruction) (*SystemInstruction, error) {
	return s.driver.UpdateSystemInstruction(ctx, update)
}

func (s *Store) DeleteSystemInstruction(ctx context.Context, id int32) error {
	return s.driver.DeleteSystemInstruction(ctx, id)
}

func (s *Store) CreateUserCustomPrompt(ctx context.Context, create *UserCustomPrompt) (*UserCustomPrompt, error) {
	return s.driver.CreateUserCustomPrompt(ctx, create)
}

func (s *Store) ListUserCustomPrompts(ctx context.Context, find *FindUserCustomPrompt) ([]*UserCustomPrompt, error) {
	return s.driver.ListUserCustomPrompts(ctx, find)
}

func (s *Store) UpdateUserCustomPrompt(ctx context.Context, update *UpdateUserCustomPrompt) (*UserCustomPrompt, error) {
	return s.driver.UpdateUserCustomPrompt(ctx, update)
}

func (s *Store) DeleteUserCustomPrompt(ctx context.Context, id int32, userID int32) error {
	return s.driver.DeleteUserCustomPrompt(ctx, id, userID)
}

// GetActiveUserCustomPrompt returns the active custom prompt for the
// (user, system instruction) pair, or nil when none exists.
func (s *Store) GetActiveUserCustomPrompt(ctx context.Context, userID, systemInstructionID int32) (*UserCustomPrompt, error) {
	isTrue := true
	list, err := s.driver.ListUserCustomPrompts(ctx, &FindUserCustomPrompt{
		UserID:              &userID,
		SystemInstructionID: &systemInstructionID,
		IsActive:            &isTrue,
		Limit:               1,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) CreateConversationMemory(ctx context.Context, create *ConversationMemory) (*ConversationMemory, error) {
	return s.driver.CreateConversationMemory(ctx, create)
}

func (s *Store) ListConversationMemories(ctx context.Context, find *FindConversationMemory) ([]*ConversationMemory, error) {
	return s.driver.ListConversationMemories(ctx, find)
}

// RecentConversationMemories returns the n newest non-deleted memories for the
// (user, system instruction) pair.
func (s *Store) RecentConversationMemories(ctx context.Context, userID, systemInstructionID int32, n int) ([]*ConversationMemory, error) {
	return s.driver.ListConversationMemories(ctx, &FindConversationMemory{
		UserID:              &userID,
		SystemInstructionID: &systemInstructionID,
		Order:               OrderByRecency,
		Limit:               n,
	})
}

// MemoryCandidates returns the oversampled retrieval candidate set, ordered by
// importance descending.
func (s *Store) MemoryCandidates(ctx context.Context, userID, systemInstructionID int32, n int) ([]*ConversationMemory, error) {
	return s.driver.ListConversationMemories(ctx, &FindConversationMemory{
		UserID:              &userID,
		SystemInstructionID: &systemInstructionID,
		Order:               OrderByImportance,
		Limit:               n,
	})
}

func (s *Store) SoftDeleteConversationMemory(ctx context.Context, id int64, userID int32) error {
	return s.driver.SoftDeleteConversationMemory(ctx, id, userID)
}

func (s *Store) BumpMemoryAccess(ctx context.Context, ids []int64) (int64, error) {
	return s.driver.BumpMemoryAccess(ctx, ids)
}

func (s *Store) SoftDeleteMemoriesBefore(ctx context.Context, userID int32, systemInstructionID *int32, cutoff time.Time) (int64, error) {
	return s.driver.SoftDeleteMemoriesBefore(ctx, userID, systemInstructionID, cutoff)
}

func (s *Store) SweepDecayedMemories(ctx context.Context, now time.Time) (int64, error) {
	return s.driver.SweepDecayedMemories(ctx, now)
}

func (s *Store) GetCharacterEmotionState(ctx context.Context, userID, charID int32) (*CharacterEmotionState, error) {
	return s.driver.GetCharacterEmotionState(ctx, userID, charID)
}

func (s *Store) UpsertCharacterEmotionState(ctx context.Context, upsert *UpsertCharacterEmotionState) (*CharacterEmotionState, error) {
	return s.driver.UpsertCharacterEmotionState(ctx, upsert)
}
