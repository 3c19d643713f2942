package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/store"
)

const userCustomPromptFields = "id, user_id, system_instruction_id, name, description, content, is_active, is_default, sort_order, created_at, updated_at"

func scanUserCustomPrompt(row interface{ Scan(...any) error }) (*store.UserCustomPrompt, error) {
	var p store.UserCustomPrompt
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SystemInstructionID,
		&p.Name,
		&p.Description,
		&p.Content,
		&p.IsActive,
		&p.IsDefault,
		&p.SortOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) CreateUserCustomPrompt(ctx context.Context, create *store.UserCustomPrompt) (*store.UserCustomPrompt, error) {
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		// A new active default displaces the user's prior default in the same
		// transaction.
		if create.IsDefault && create.IsActive {
			if _, err := tx.ExecContext(ctx, `UPDATE user_custom_prompts SET is_default = FALSE, updated_at = now() WHERE is_default = TRUE AND user_id = `+placeholder(1), create.UserID); err != nil {
				return errors.Wrap(err, "failed to clear prior defaults")
			}
		}
		stmt := `
			INSERT INTO user_custom_prompts (user_id, system_instruction_id, name, description, content, is_active, is_default, sort_order)
			VALUES (` + placeholders(8) + `)
			RETURNING id, created_at, updated_at
		`
		return tx.QueryRowContext(ctx, stmt,
			create.UserID,
			create.SystemInstructionID,
			create.Name,
			create.Description,
			create.Content,
			create.IsActive,
			create.IsDefault,
			create.SortOrder,
		).Scan(&create.ID, &create.CreatedAt, &create.UpdatedAt)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user custom prompt")
	}
	return create, nil
}

func (d *DB) ListUserCustomPrompts(ctx context.Context, find *store.FindUserCustomPrompt) ([]*store.UserCustomPrompt, error) {
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
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}

	query := `
		SELECT ` + userCustomPromptFields + `
		FROM user_custom_prompts
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY sort_order ASC, id ASC
	`
	if find.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user custom prompts")
	}
	defer rows.Close()

	list := []*store.UserCustomPrompt{}
	for rows.Next() {
		p, err := scanUserCustomPrompt(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user custom prompt")
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateUserCustomPrompt(ctx context.Context, update *store.UpdateUserCustomPrompt) (*store.UserCustomPrompt, error) {
	var updated *store.UserCustomPrompt
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if update.IsDefault != nil && *update.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE user_custom_prompts SET is_default = FALSE, updated_at = now() WHERE is_default = TRUE AND user_id = `+placeholder(1)+` AND id <> `+placeholder(2), update.UserID, update.ID); err != nil {
				return errors.Wrap(err, "failed to clear prior defaults")
			}
		}

		set, args := []string{"updated_at = now()"}, []any{}
		if update.Name != nil {
			set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *update.Name)
		}
		if update.Content != nil {
			set, args = append(set, "content = "+placeholder(len(args)+1)), append(args, *update.Content)
		}
		if update.IsActive != nil {
			set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
		}
		if update.IsDefault != nil {
			set, args = append(set, "is_default = "+placeholder(len(args)+1)), append(args, *update.IsDefault)
		}
		if update.SortOrder != nil {
			set, args = append(set, "sort_order = "+placeholder(len(args)+1)), append(args, *update.SortOrder)
		}
		args = append(args, update.ID, update.UserID)

		stmt := `
			UPDATE user_custom_prompts SET ` + strings.Join(set, ", ") + `
			WHERE id = ` + placeholder(len(args)-1) + ` AND user_id = ` + placeholder(len(args)) + `
			RETURNING ` + userCustomPromptFields
		p, err := scanUserCustomPrompt(tx.QueryRowContext(ctx, stmt, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.Newf(errs.ErrNotFound, "custom prompt %d not found", update.ID)
			}
			return errors.Wrap(err, "failed to update user custom prompt")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *DB) DeleteUserCustomPrompt(ctx context.Context, id int32, userID int32) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM user_custom_prompts WHERE id = `+placeholder(1)+` AND user_id = `+placeholder(2), id, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete user custom prompt")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errs.Newf(errs.ErrNotFound, "custom prompt %d not found", id)
	}
	return nil
}
