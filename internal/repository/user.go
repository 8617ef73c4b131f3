package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/jackc/pgx/v5"
)

// CreateAdminUser inserts an administrator-role user. A unique-constraint
// violation (username, email or phone already taken) maps to ErrDuplicate.
func (db *PostgresDB) CreateAdminUser(ctx context.Context, u *model.User) error {
	var phone interface{}
	if u.PhoneNumber != "" {
		phone = u.PhoneNumber
	}
	query := `
		INSERT INTO users (username, alias, fullname, email, phone_number, address,
		                   password_hash, role, is_confirmed, is_active_premium, other_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := db.pool.QueryRow(ctx, query,
		u.Username, u.Alias, u.FullName, u.Email, phone, u.Address,
		u.PasswordHash, u.Role, u.IsConfirmed, u.IsActivePremium, u.OtherInfo,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Username, ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetUserByUsername returns nil, nil when no such user exists.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, COALESCE(alias, ''), fullname, email, COALESCE(phone_number, ''),
		       COALESCE(address, ''), COALESCE(password_hash, ''), role,
		       is_confirmed, is_active_premium, COALESCE(other_info, ''), created_at
		FROM users
		WHERE username = $1
	`
	var u model.User
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.Alias, &u.FullName, &u.Email, &u.PhoneNumber,
		&u.Address, &u.PasswordHash, &u.Role,
		&u.IsConfirmed, &u.IsActivePremium, &u.OtherInfo, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ConfirmUser flips is_confirmed for the user a confirmation token named.
// Both id and email must match the token's claims; returns false when no
// row was updated (unknown user or email mismatch).
func (db *PostgresDB) ConfirmUser(ctx context.Context, userID int64, email string) (bool, error) {
	query := `
		UPDATE users
		SET is_confirmed = TRUE
		WHERE id = $1 AND email = $2
	`
	cmd, err := db.pool.Exec(ctx, query, userID, email)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
