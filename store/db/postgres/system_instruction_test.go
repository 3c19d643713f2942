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

const clearInstructionDefaults = `UPDATE system_instructions SET is_default = FALSE, updated_at = now\(\) WHERE is_default = TRUE`

func systemInstructionColumns() []string {
	return []string{"id", "name", "description", "content", "is_active", "is_default", "sort_order", "created_at", "updated_at"}
}

func TestCreateSystemInstructionClearsPriorDefault(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()

	// The prior default is cleared before the insert, inside one transaction.
	mock.ExpectBegin()
	mock.ExpectExec(clearInstructionDefaults + `$`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO system_instructions \(name, description, content, is_active, is_default, sort_order\)`).
		WithArgs("温柔", nil, "你是一个温柔体贴的伙伴", true, true, int32(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int32(2), now, now))
	mock.ExpectCommit()

	created, err := d.CreateSystemInstruction(context.Background(), &store.SystemInstruction{
		Name:      "温柔",
		Content:   "你是一个温柔体贴的伙伴",
		IsActive:  true,
		IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), created.ID)
}

func TestCreateSystemInstructionNonDefaultSkipsClear(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO system_instructions`).
		WithArgs("助理", nil, "你是一个高效的助理", true, false, int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int32(3), now, now))
	mock.ExpectCommit()

	_, err := d.CreateSystemInstruction(context.Background(), &store.SystemInstruction{
		Name:      "助理",
		Content:   "你是一个高效的助理",
		IsActive:  true,
		SortOrder: 1,
	})
	require.NoError(t, err)
}

func TestUpdateSystemInstructionToDefaultClearsOthers(t *testing.T) {
	d, mock := newMockDB(t)
	now := time.Now()
	isDefault := true

	mock.ExpectBegin()
	mock.ExpectExec(clearInstructionDefaults + ` AND id <> \$1`).
		WithArgs(int32(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE system_instructions SET updated_at = now\(\), is_default = \$1 WHERE id = \$2 RETURNING`).
		WithArgs(true, int32(5)).
		WillReturnRows(sqlmock.NewRows(systemInstructionColumns()).
			AddRow(int32(5), "温柔", nil, "你是一个温柔体贴的伙伴", true, true, int32(0), now, now))
	mock.ExpectCommit()

	updated, err := d.UpdateSystemInstruction(context.Background(), &store.UpdateSystemInstruction{
		ID:        5,
		IsDefault: &isDefault,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
}

func TestUpdateSystemInstructionNotFound(t *testing.T) {
	d, mock := newMockDB(t)
	name := "改名"

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE system_instructions SET updated_at = now\(\), name = \$1 WHERE id = \$2 RETURNING`).
		WithArgs(name, int32(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := d.UpdateSystemInstruction(context.Background(), &store.UpdateSystemInstruction{ID: 99, Name: &name})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteSystemInstructionNotFound(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectExec(`DELETE FROM system_instructions WHERE id = \$1`).
		WithArgs(int32(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, d.DeleteSystemInstruction(context.Background(), 9), errs.ErrNotFound)
}
