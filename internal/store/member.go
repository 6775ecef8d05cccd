package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/musicclub/apiserver/types"
)

// MemberRepository handles persistence for the club roster.
type MemberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberSelect = `
	SELECT m.id, m.user_id,
		CONCAT_WS(' ', NULLIF(u.prefix, ''), u.first_name, u.last_name) AS name,
		u.email, u.faculty, u.role,
		to_char(m.join_date, 'YYYY-MM-DD') AS join_date,
		m.status
	FROM members m
	JOIN users u ON u.id = m.user_id`

func (r *MemberRepository) List(ctx context.Context) ([]types.Member, error) {
	members := make([]types.Member, 0)
	if err := r.db.SelectContext(ctx, &members, memberSelect+` ORDER BY m.id DESC`); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *MemberRepository) Get(ctx context.Context, id int) (types.Member, error) {
	var member types.Member
	if err := r.db.GetContext(ctx, &member, memberSelect+` WHERE m.id = $1`, id); err != nil {
		return types.Member{}, notFound(err)
	}
	return member, nil
}

// ListNonMembers returns users without a roster entry.
func (r *MemberRepository) ListNonMembers(ctx context.Context) ([]types.NonMember, error) {
	const query = `
		SELECT u.id,
			CONCAT_WS(' ', NULLIF(u.prefix, ''), u.first_name, u.last_name) AS name,
			u.email, u.faculty
		FROM users u
		LEFT JOIN members m ON m.user_id = u.id
		WHERE m.id IS NULL
		ORDER BY u.first_name, u.last_name, u.id`
	users := make([]types.NonMember, 0)
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

// Create enrolls userID. A second enrollment of the same user yields ErrAlreadyExists.
func (r *MemberRepository) Create(ctx context.Context, userID int, joinDate string, status types.MemberStatus) (types.Member, error) {
	const query = `
		INSERT INTO members (user_id, join_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id`
	var id int
	if err := r.db.QueryRowxContext(ctx, query, userID, joinDate, status, time.Now()).Scan(&id); err != nil {
		return types.Member{}, translate(err)
	}
	return r.Get(ctx, id)
}

func (r *MemberRepository) UpdateStatus(ctx context.Context, id int, status types.MemberStatus) error {
	const query = `UPDATE members SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// UserID resolves the account behind a roster entry.
func (r *MemberRepository) UserID(ctx context.Context, id int) (int, error) {
	var userID int
	if err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM members WHERE id = $1`, id); err != nil {
		return 0, notFound(err)
	}
	return userID, nil
}

func (r *MemberRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// countMembers returns how many of ids exist. ids must be distinct.
func countMembers(ctx context.Context, q sqlx.QueryerContext, ids []int) (int, error) {
	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}
	var count int
	if err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM members WHERE id = ANY($1)`, pq.Array(ids64)); err != nil {
		return 0, err
	}
	return count, nil
}
