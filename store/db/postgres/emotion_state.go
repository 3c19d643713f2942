package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/konusmate/mate/store"
)

func (d *DB) GetCharacterEmotionState(ctx context.Context, userID, charID int32) (*store.CharacterEmotionState, error) {
	query := `
		SELECT id, user_id, char_id, valence, arousal, created_at, updated_at
		FROM character_emotion_states
		WHERE user_id = ` + placeholder(1) + ` AND char_id = ` + placeholder(2) + `
	`
	var state store.CharacterEmotionState
	err := d.db.QueryRowContext(ctx, query, userID, charID).Scan(
		&state.ID,
		&state.UserID,
		&state.CharID,
		&state.Valence,
		&state.Arousal,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get emotion state")
	}
	return &state, nil
}

func (d *DB) UpsertCharacterEmotionState(ctx context.Context, upsert *store.UpsertCharacterEmotionState) (*store.CharacterEmotionState, error) {
	stmt := `
		INSERT INTO character_emotion_states (user_id, char_id, valence, arousal)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id, char_id)
		DO UPDATE SET
			valence = EXCLUDED.valence,
			arousal = EXCLUDED.arousal,
			updated_at = now()
		RETURNING id, user_id, char_id, valence, arousal, created_at, updated_at
	`
	var state store.CharacterEmotionState
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.CharID,
		upsert.Valence,
		upsert.Arousal,
	).Scan(
		&state.ID,
		&state.UserID,
		&state.CharID,
		&state.Valence,
		&state.Arousal,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert emotion state")
	}
	return &state, nil
}
