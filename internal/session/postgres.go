package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/musicclub/apiserver/types"
)

// PostgresStore keeps sessions in the sessions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	const query = `
		SELECT id, user_id, identity, generation, created_at, expires_at
		FROM sessions
		WHERE id = $1`
	var (
		sess     Session
		userID   sql.NullInt64
		identity []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&userID,
		&identity,
		&sess.Generation,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if userID.Valid {
		sess.UserID = int(userID.Int64)
	}
	if len(identity) > 0 {
		var cached types.Identity
		if err := json.Unmarshal(identity, &cached); err == nil {
			sess.Identity = &cached
		}
	}
	return sess, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess Session) error {
	var identity []byte
	if sess.Identity != nil {
		data, err := json.Marshal(sess.Identity)
		if err != nil {
			return fmt.Errorf("failed to marshal identity: %w", err)
		}
		identity = data
	}
	var userID sql.NullInt64
	if sess.UserID > 0 {
		userID = sql.NullInt64{Int64: int64(sess.UserID), Valid: true}
	}

	const query = `
		INSERT INTO sessions (id, user_id, identity, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			identity = EXCLUDED.identity,
			expires_at = EXCLUDED.expires_at`
	_, err := s.db.ExecContext(ctx, query, sess.ID, userID, identity, sess.CreatedAt, sess.ExpiresAt)
	return err
}

func (s *PostgresStore) CacheIdentity(ctx context.Context, sess Session) error {
	var identity []byte
	if sess.Identity != nil {
		data, err := json.Marshal(sess.Identity)
		if err != nil {
			return fmt.Errorf("failed to marshal identity: %w", err)
		}
		identity = data
	}

	const query = `
		UPDATE sessions
		SET identity = $2
		WHERE id = $1 AND user_id = $3 AND generation = $4`
	result, err := s.db.ExecContext(ctx, query, sess.ID, identity, sess.UserID, sess.Generation)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *PostgresStore) ClearIdentities(ctx context.Context, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	ids := make([]int64, len(userIDs))
	for i, id := range userIDs {
		ids[i] = int64(id)
	}
	const query = `UPDATE sessions SET identity = NULL, generation = generation + 1 WHERE user_id = ANY($1)`
	_, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	return err
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= $1`
	result, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
