package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/konusmate/mate/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES (` + placeholders(4) + `)
		RETURNING id, created_at, updated_at
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.Username,
		create.Email,
		create.PasswordHash,
		create.IsActive,
	).Scan(&create.ID, &create.CreatedAt, &create.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return create, nil
}

func (d *DB) GetUser(ctx context.Context, find *store.FindUser) (*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Username != nil {
		where, args = append(where, "username = "+placeholder(len(args)+1)), append(args, *find.Username)
	}
	if find.Email != nil {
		where, args = append(where, "email = "+placeholder(len(args)+1)), append(args, *find.Email)
	}

	query := `
		SELECT id, username, email, password_hash, is_active, last_login_at, last_login_ip, created_at, updated_at
		FROM users
		WHERE ` + strings.Join(where, " AND ") + `
		LIMIT 1
	`
	var user store.User
	err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.LastLoginAt,
		&user.LastLoginIP,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	return &user, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) error {
	set, args := []string{"updated_at = now()"}, []any{}
	if update.LastLoginAt != nil {
		set, args = append(set, "last_login_at = "+placeholder(len(args)+1)), append(args, *update.LastLoginAt)
	}
	if update.LastLoginIP != nil {
		set, args = append(set, "last_login_ip = "+placeholder(len(args)+1)), append(args, *update.LastLoginIP)
	}
	args = append(args, update.ID)

	stmt := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update user")
	}
	return nil
}
