package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/musicclub/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, role, prefix, first_name, last_name, faculty, password_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.Prefix,
		&user.FirstName,
		&user.LastName,
		&user.Faculty,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, role, prefix, first_name, last_name, faculty, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Role,
		user.Prefix,
		user.FirstName,
		user.LastName,
		user.Faculty,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// List returns users newest first, optionally filtered by role, with the
// total number of matching rows.
func (r *UserRepository) List(ctx context.Context, filter types.UserFilter) ([]types.User, int, error) {
	var roleArg any
	if filter.Role != "" {
		roleArg = string(filter.Role)
	}

	const countQuery = `SELECT COUNT(*) FROM users WHERE ($1::text IS NULL OR role = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, roleArg).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1::text IS NULL OR role = $1)
		ORDER BY created_at DESC, id DESC`
	args := []any{roleArg}
	if filter.Limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// RoleTx is the locked view of users used while mutating roles.
type RoleTx interface {
	// CountAdmins locks every Admin row and returns how many there are.
	CountAdmins(ctx context.Context) (int, error)
	// LockRole locks the user row and returns its stored role.
	LockRole(ctx context.Context, userID int) (types.Role, error)
	SetRole(ctx context.Context, userID int, role types.Role) error
}

// WithRoleTx runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (r *UserRepository) WithRoleTx(ctx context.Context, fn func(tx RoleTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role tx: %w", err)
	}

	if err := fn(&roleTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role tx: %w", err)
	}
	return nil
}

type roleTx struct {
	tx *sql.Tx
}

func (t *roleTx) CountAdmins(ctx context.Context) (int, error) {
	const query = `
		SELECT COUNT(*) FROM (
			SELECT id FROM users WHERE role = $1 ORDER BY id FOR UPDATE
		) AS admins`
	var count int
	if err := t.tx.QueryRowContext(ctx, query, types.RoleAdmin).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (t *roleTx) LockRole(ctx context.Context, userID int) (types.Role, error) {
	const query = `SELECT role FROM users WHERE id = $1 FOR UPDATE`
	var role types.Role
	if err := t.tx.QueryRowContext(ctx, query, userID).Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return role, nil
}

func (t *roleTx) SetRole(ctx context.Context, userID int, role types.Role) error {
	const query = `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`
	result, err := t.tx.ExecContext(ctx, query, role, time.Now(), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
