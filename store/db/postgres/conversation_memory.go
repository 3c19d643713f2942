package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/konusmate/mate/store"
)

const conversationMemoryFields = `
	id, user_id, system_instruction_id, memory_type, memory_category,
	original_content, summary, key_points, entities, embedding,
	conversation_round, importance_score, emotional_weight,
	created_at_timestamp, last_accessed, access_count,
	is_deleted, deleted_at, created_at, updated_at`

func (d *DB) CreateConversationMemory(ctx context.Context, create *store.ConversationMemory) (*store.ConversationMemory, error) {
	keyPoints, err := json.Marshal(create.KeyPoints)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal key points")
	}
	var entities any
	if create.Entities != nil {
		raw, err := json.Marshal(create.Entities)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal entities")
		}
		entities = string(raw)
	}
	var embedding any
	if create.Embedding != nil {
		embedding = pgvector.NewVector(create.Embedding)
	}

	stmt := `
		INSERT INTO conversation_memories (
			user_id, system_instruction_id, memory_type, memory_category,
			original_content, summary, key_points, entities, embedding,
			conversation_round, importance_score, emotional_weight,
			created_at_timestamp, last_accessed, access_count
		)
		VALUES (` + placeholders(15) + `)
		RETURNING id, created_at, updated_at
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.SystemInstructionID,
		create.MemoryType,
		create.MemoryCategory,
		create.OriginalContent,
		create.Summary,
		string(keyPoints),
		entities,
		embedding,
		create.ConversationRound,
		create.ImportanceScore,
		create.EmotionalWeight,
		create.CreatedAtTimestamp,
		create.LastAccessed,
		create.AccessCount,
	).Scan(&create.ID, &create.CreatedAt, &create.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation memory")
	}
	return create, nil
}

func (d *DB) ListConversationMemories(ctx context.Context, find *store.FindConversationMemory) ([]*store.ConversationMemory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.SystemInstructionID != nil {
		where, args = append(where, "system_instruction_id = "+placeholder(len(args)+1)), append(args, *find.SystemInstructionID)
	}
	if !find.IncludeDeleted {
		where = append(where, "is_deleted = FALSE")
	}

	order := "importance_score DESC, created_at DESC"
	if find.Order == store.OrderByRecency {
		order = "created_at DESC"
	}

	query := `
		SELECT ` + conversationMemoryFields + `
		FROM conversation_memories
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + order
	if find.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversation memories")
	}
	defer rows.Close()

	list := []*store.ConversationMemory{}
	for rows.Next() {
		memory, err := scanConversationMemory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation memory")
		}
		list = append(list, memory)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanConversationMemory(rows *sql.Rows) (*store.ConversationMemory, error) {
	var memory store.ConversationMemory
	var keyPoints, entities sql.NullString
	var embedding sql.Null[pgvector.Vector]
	err := rows.Scan(
		&memory.ID,
		&memory.UserID,
		&memory.SystemInstructionID,
		&memory.MemoryType,
		&memory.MemoryCategory,
		&memory.OriginalContent,
		&memory.Summary,
		&keyPoints,
		&entities,
		&embedding,
		&memory.ConversationRound,
		&memory.ImportanceScore,
		&memory.EmotionalWeight,
		&memory.CreatedAtTimestamp,
		&memory.LastAccessed,
		&memory.AccessCount,
		&memory.IsDeleted,
		&memory.DeletedAt,
		&memory.CreatedAt,
		&memory.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if keyPoints.Valid && keyPoints.String != "" {
		if err := json.Unmarshal([]byte(keyPoints.String), &memory.KeyPoints); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal key points")
		}
	}
	if entities.Valid && entities.String != "" {
		memory.Entities = &store.Entities{}
		if err := json.Unmarshal([]byte(entities.String), memory.Entities); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal entities")
		}
	}
	if embedding.Valid {
		memory.Embedding = embedding.V.Slice()
	}
	return &memory, nil
}

// SoftDeleteConversationMemory marks the row deleted. Idempotent: deleting an
// already-deleted or missing row is not an error.
func (d *DB) SoftDeleteConversationMemory(ctx context.Context, id int64, userID int32) error {
	stmt := `
		UPDATE conversation_memories
		SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
		WHERE id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2) + ` AND is_deleted = FALSE
	`
	if _, err := d.db.ExecContext(ctx, stmt, id, userID); err != nil {
		return errors.Wrap(err, "failed to soft delete conversation memory")
	}
	return nil
}

// BumpMemoryAccess updates access statistics for all ids in one statement.
// Soft-deleted rows are left untouched.
func (d *DB) BumpMemoryAccess(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	stmt := `
		UPDATE conversation_memories
		SET last_accessed = ` + placeholder(1) + `, access_count = access_count + 1, updated_at = now()
		WHERE id = ANY(` + placeholder(2) + `) AND is_deleted = FALSE
	`
	result, err := d.db.ExecContext(ctx, stmt, time.Now().Unix(), pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "failed to bump memory access")
	}
	count, _ := result.RowsAffected()
	return count, nil
}

// SoftDeleteMemoriesBefore soft-deletes all non-deleted memories of the user
// created before the cutoff, optionally scoped to one system instruction.
func (d *DB) SoftDeleteMemoriesBefore(ctx context.Context, userID int32, systemInstructionID *int32, cutoff time.Time) (int64, error) {
	where, args := []string{"user_id = $1", "is_deleted = FALSE", "created_at < $2"}, []any{userID, cutoff}
	if systemInstructionID != nil {
		where, args = append(where, "system_instruction_id = "+placeholder(len(args)+1)), append(args, *systemInstructionID)
	}

	var count int64
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		stmt := `
			UPDATE conversation_memories
			SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
			WHERE ` + strings.Join(where, " AND ")
		result, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return errors.Wrap(err, "failed to soft delete old memories")
		}
		count, _ = result.RowsAffected()
		return nil
	})
	return count, err
}

// SweepDecayedMemories applies the daily GC rules in a single transaction:
//
//	R1: event/desire, idle > 7 days, emotional_weight < 0.5, importance < 5
//	R2: any category, idle > 30 days, access_count < 3, importance < 5
//
// fact/preference rows can only ever fall under R2.
func (d *DB) SweepDecayedMemories(ctx context.Context, now time.Time) (int64, error) {
	const secondsPerDay = 86400
	shortTermCutoff := now.Unix() - 7*secondsPerDay
	coldDataCutoff := now.Unix() - 30*secondsPerDay

	var count int64
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		stmt := `
			UPDATE conversation_memories
			SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
			WHERE is_deleted = FALSE
				AND importance_score < 5
				AND (
					(memory_category IN ('event', 'desire') AND last_accessed < ` + placeholder(1) + ` AND emotional_weight < 0.5)
					OR (last_accessed < ` + placeholder(2) + ` AND access_count < 3)
				)
		`
		result, err := tx.ExecContext(ctx, stmt, shortTermCutoff, coldDataCutoff)
		if err != nil {
			return errors.Wrap(err, "failed to sweep decayed memories")
		}
		count, _ = result.RowsAffected()
		return nil
	})
	return count, err
}
