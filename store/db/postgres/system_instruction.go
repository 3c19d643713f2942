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

const systemInstructionFields = "id, name, description, content, is_active, is_default, sort_order, created_at, updated_at"

func scanSystemInstruction(row interface{ Scan(...any) error }) (*store.SystemInstruction, error) {
	var si store.SystemInstruction
	err := row.Scan(
		&si.ID,
		&si.Name,
		&si.Description,
		&si.Content,
		&si.IsActive,
		&si.IsDefault,
		&si.SortOrder,
		&si.CreatedAt,
		&si.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &si, nil
}

func (d *DB) CreateSystemInstruction(ctx context.Context, create *store.SystemInstruction) (*store.SystemInstruction, error) {
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		// A new active default displaces any prior default in the same transaction.
		if create.IsDefault && create.IsActive {
			if _, err := tx.ExecContext(ctx, `UPDATE system_instructions SET is_default = FALSE, updated_at = now() WHERE is_default = TRUE`); err != nil {
				return errors.Wrap(err, "failed to clear prior defaults")
			}
		}
		stmt := `
			INSERT INTO system_instructions (name, description, content, is_active, is_default, sort_order)
			VALUES (` + placeholders(6) + `)
			RETURNING id, created_at, updated_at
		`
		return tx.QueryRowContext(ctx, stmt,
			create.Name,
			create.Description,
			create.Content,
			create.IsActive,
			create.IsDefault,
			create.SortOrder,
		).Scan(&create.ID, &create.CreatedAt, &create.UpdatedAt)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create system instruction")
	}
	return create, nil
}

func (d *DB) ListSystemInstructions(ctx context.Context, find *store.FindSystemInstruction) ([]*store.SystemInstruction, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}
	if find.IsDefault != nil {
		where, args = append(where, "is_default = "+placeholder(len(args)+1)), append(args, *find.IsDefault)
	}

	query := `
		SELECT ` + systemInstructionFields + `
		FROM system_instructions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY sort_order ASC, id ASC
	`
	if find.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list system instructions")
	}
	defer rows.Close()

	list := []*store.SystemInstruction{}
	for rows.Next() {
		si, err := scanSystemInstruction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan system instruction")
		}
		list = append(list, si)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateSystemInstruction(ctx context.Context, update *store.UpdateSystemInstruction) (*store.SystemInstruction, error) {
	var updated *store.SystemInstruction
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if update.IsDefault != nil && *update.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE system_instructions SET is_default = FALSE, updated_at = now() WHERE is_default = TRUE AND id <> `+placeholder(1), update.ID); err != nil {
				return errors.Wrap(err, "failed to clear prior defaults")
			}
		}

		set, args := []string{"updated_at = now()"}, []any{}
		if update.Name != nil {
			set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *update.Name)
		}
		if update.Description != nil {
			set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *update.Description)
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
		args = append(args, update.ID)

		stmt := `
			UPDATE system_instructions SET ` + strings.Join(set, ", ") + `
			WHERE id = ` + placeholder(len(args)) + `
			RETURNING ` + systemInstructionFields
		si, err := scanSystemInstruction(tx.QueryRowContext(ctx, stmt, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.Newf(errs.ErrNotFound, "system instruction %d not found", update.ID)
			}
			return errors.Wrap(err, "failed to update system instruction")
		}
		updated = si
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *DB) DeleteSystemInstruction(ctx context.Context, id int32) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM system_instructions WHERE id = `+placeholder(1), id)
	if err != nil {
		return errors.Wrap(err, "failed to delete system instruction")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errs.Newf(errs.ErrNotFound, "system instruction %d not found", id)
	}
	return nil
}
