package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The sweep must never touch fact/preference rows through the short-term rule,
// so its expectation pins the category predicate rather than just the table.
const sweepDecayedStmt = `UPDATE conversation_memories ` +
	`SET is_deleted = TRUE, deleted_at = now\(\), updated_at = now\(\) ` +
	`WHERE is_deleted = FALSE AND importance_score < 5 AND ` +
	`\( \(memory_category IN \('event', 'desire'\) AND last_accessed < \$1 AND emotional_weight < 0\.5\) ` +
	`OR \(last_accessed < \$2 AND access_count < 3\) \)`

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return &DB{db: db}, mock
}

func TestBumpMemoryAccess(t *testing.T) {
	d, mock := newMockDB(t)

	// Soft-deleted rows must not have their access stats revived.
	mock.ExpectExec(`UPDATE conversation_memories SET last_accessed = \$1, access_count = access_count \+ 1, updated_at = now\(\) WHERE id = ANY\(\$2\) AND is_deleted = FALSE`).
		WithArgs(sqlmock.AnyArg(), pq.Array([]int64{3, 7})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := d.BumpMemoryAccess(context.Background(), []int64{3, 7})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBumpMemoryAccessEmptyIDs(t *testing.T) {
	d, _ := newMockDB(t)

	// No statement runs for an empty id set.
	count, err := d.BumpMemoryAccess(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSweepDecayedMemories(t *testing.T) {
	d, mock := newMockDB(t)

	now := time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
	shortTermCutoff := now.Unix() - 7*86400
	coldDataCutoff := now.Unix() - 30*86400

	mock.ExpectBegin()
	mock.ExpectExec(sweepDecayedStmt).
		WithArgs(shortTermCutoff, coldDataCutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	count, err := d.SweepDecayedMemories(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSweepDecayedMemoriesRollsBackOnError(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(sweepDecayedStmt).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := d.SweepDecayedMemories(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestSoftDeleteConversationMemoryIdempotent(t *testing.T) {
	d, mock := newMockDB(t)

	// Zero rows affected is still a success.
	mock.ExpectExec(`UPDATE conversation_memories SET is_deleted = TRUE, deleted_at = now\(\), updated_at = now\(\) WHERE id = \$1 AND user_id = \$2 AND is_deleted = FALSE`).
		WithArgs(int64(42), int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, d.SoftDeleteConversationMemory(context.Background(), 42, 1))
}

func TestSoftDeleteMemoriesBefore(t *testing.T) {
	d, mock := newMockDB(t)

	cutoff := time.Date(2026, 5, 26, 0, 0, 0, 0, time.UTC)
	sid := int32(2)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE conversation_memories`).
		WithArgs(int32(1), cutoff, sid).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	count, err := d.SoftDeleteMemoriesBefore(context.Background(), 1, &sid, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
