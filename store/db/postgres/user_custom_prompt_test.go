package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/store"
)

const clearPromptDefaults = `UPDATE user_custom_prompts SET is_default = FALSE, updated_at = now\(\) WHERE is_default = TRUE AND user_id = \$1`

func userCustomPromptColumns() []string {
	return []string{"id", "user_id", "system_instruction_id", "name", "description", "content", "is_active", "is_default", "sort_order", "created_at", "updated_at"}
}

func TestCreateUserCustomPromptClearsPriorDefault(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()

	// Only the same user's prior default is cleared, before the insert,
	// inside one transaction.
	mock.ExpectBegin()
	mock.ExpectExec(clearPromptDefaults + `$`).
		WithArgs(int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO user_custom_prompts \(user_id, system_instruction_id, name, description, content, is_active, is_default, sort_order\)`).
		WithArgs(int32(1), int32(2), "称呼", nil, "请叫我老王", true, true, int32(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int32(4), now, now))
	mock.ExpectCommit()

	created, err := d.CreateUserCustomPrompt(context.Background(), &store.UserCustomPrompt{
		UserID:              1,
		SystemInstructionID: 2,
		Name:                "称呼",
		Content:             "请叫我老王",
		IsActive:            true,
		IsDefault:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(4), created.ID)
}

func TestCreateUserCustomPromptNonDefaultSkipsClear(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO user_custom_prompts`).
		WithArgs(int32(1), int32(2), "口味", nil, "我只喝美式", true, false, int32(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int32(5), now, now))
	mock.ExpectCommit()

	_, err := d.CreateUserCustomPrompt(context.Background(), &store.UserCustomPrompt{
		UserID:              1,
		SystemInstructionID: 2,
		Name:                "口味",
		Content:             "我只喝美式",
		IsActive:            true,
	})
	require.NoError(t, err)
}

func TestUpdateUserCustomPromptToDefaultClearsOthers(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()
	isDefault := true

	mock.ExpectBegin()
	mock.ExpectExec(clearPromptDefaults + ` AND id <> \$2`).
		WithArgs(int32(1), int32(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE user_custom_prompts SET updated_at = now\(\), is_default = \$1 WHERE id = \$2 AND user_id = \$3 RETURNING`).
		WithArgs(true, int32(4), int32(1)).
		WillReturnRows(sqlmock.NewRows(userCustomPromptColumns()).
			AddRow(int32(4), int32(1), int32(2), "称呼", nil, "请叫我老王", true, true, int32(0), now, now))
	mock.ExpectCommit()

	updated, err := d.UpdateUserCustomPrompt(context.Background(), &store.UpdateUserCustomPrompt{
		ID:        4,
		UserID:    1,
		IsDefault: &isDefault,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
}

func TestUpdateUserCustomPromptNotFound(t *testing.T) {
	d, mock := newMockDB(t)
	content := "改写内容"

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE user_custom_prompts SET updated_at = now\(\), content = \$1 WHERE id = \$2 AND user_id = \$3 RETURNING`).
		WithArgs(content, int32(99), int32(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := d.UpdateUserCustomPrompt(context.Background(), &store.UpdateUserCustomPrompt{
		ID:      99,
		UserID:  1,
		Content: &content,
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
