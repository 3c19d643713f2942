package store

import "time"

// CharacterEmotionState persists the Valence-Arousal emotion state of one
// character (system instruction) toward one user. (user_id, char_id) is
// unique; both axes are clamped to [-1, 1] on every update.
type CharacterEmotionState struct {
	ID        int32
	UserID    int32
	CharID    int32
	Valence   float32
	Arousal   float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertCharacterEmotionState creates the (user, char) state on first
// observation or overwrites the VA values of the existing row.
type UpsertCharacterEmotionState struct {
	UserID  int32
	CharID  int32
	Valence float32
	Arousal float32
}
