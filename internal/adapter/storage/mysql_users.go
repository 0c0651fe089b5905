package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const errDuplicateEntry = 1062

func (m *MySQLAdapter) CreateUser(ctx context.Context, user *domain.User) error {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
			return port.ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return m.getUser(ctx, `WHERE id = ?`, id)
}

func (m *MySQLAdapter) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.getUser(ctx, `WHERE username = ?`, username)
}

func (m *MySQLAdapter) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
