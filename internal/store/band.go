package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/musicclub/apiserver/types"
)

// BandRepository handles persistence for bands and their line-ups.
type BandRepository struct {
	db *sqlx.DB
}

func NewBandRepository(db *sqlx.DB) *BandRepository {
	return &BandRepository{db: db}
}

const bandSelect = `
	SELECT b.id, b.name, b.year, b.description, b.created_at, b.updated_at,
		(SELECT COUNT(*) FROM band_members bm WHERE bm.band_id = b.id) AS member_count
	FROM bands b`

func (r *BandRepository) List(ctx context.Context) ([]types.Band, error) {
	bands := make([]types.Band, 0)
	if err := r.db.SelectContext(ctx, &bands, bandSelect+` ORDER BY b.year DESC, b.name`); err != nil {
		return nil, err
	}
	return bands, nil
}

func (r *BandRepository) Get(ctx context.Context, id int) (types.Band, error) {
	var band types.Band
	if err := r.db.GetContext(ctx, &band, bandSelect+` WHERE b.id = $1`, id); err != nil {
		return types.Band{}, notFound(err)
	}
	return band, nil
}

func (r *BandRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bands WHERE id = $1)`, id); err != nil {
		return false, err
	}
	return exists, nil
}

// Detail returns the band with its schedules and members.
func (r *BandRepository) Detail(ctx context.Context, id int) (types.BandDetail, error) {
	band, err := r.Get(ctx, id)
	if err != nil {
		return types.BandDetail{}, err
	}

	detail := types.BandDetail{
		Band:      band,
		Schedules: make([]types.BandSchedule, 0),
		Members:   make([]types.BandMember, 0),
	}

	const schedulesQuery = `
		SELECT id, activity, to_char(date, 'YYYY-MM-DD') AS date, time, location
		FROM schedules
		WHERE band_id = $1
		ORDER BY date, time`
	if err := r.db.SelectContext(ctx, &detail.Schedules, schedulesQuery, id); err != nil {
		return types.BandDetail{}, err
	}

	const membersQuery = `
		SELECT m.id AS member_id, u.id AS user_id,
			CONCAT_WS(' ', NULLIF(u.prefix, ''), u.first_name, u.last_name) AS name,
			u.email, u.faculty, u.role AS user_role, m.status AS member_status,
			bm.role_in_band, bm.joined_at
		FROM band_members bm
		JOIN members m ON m.id = bm.member_id
		JOIN users u ON u.id = m.user_id
		WHERE bm.band_id = $1
		ORDER BY bm.joined_at, m.id`
	if err := r.db.SelectContext(ctx, &detail.Members, membersQuery, id); err != nil {
		return types.BandDetail{}, err
	}

	return detail, nil
}

// Create inserts the band and its initial members in one transaction.
// An unknown member id aborts the whole insert with ErrNotFound.
func (r *BandRepository) Create(ctx context.Context, band types.Band, members []types.BandMemberInput) (types.Band, error) {
	now := time.Now()
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			INSERT INTO bands (name, year, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING id`
		if err := tx.QueryRowxContext(ctx, query, band.Name, band.Year, band.Description, now).Scan(&band.ID); err != nil {
			return translate(err)
		}
		return insertBandMembers(ctx, tx, band.ID, members)
	})
	if err != nil {
		return types.Band{}, err
	}

	band.MemberCount = len(members)
	band.CreatedAt = now
	band.UpdatedAt = now
	return band, nil
}

func (r *BandRepository) Update(ctx context.Context, band types.Band) error {
	const query = `UPDATE bands SET name = $1, year = $2, description = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, band.Name, band.Year, band.Description, time.Now(), band.ID)
	if err != nil {
		return translate(err)
	}
	return expectAffected(result)
}

// Delete removes a band and its line-up. A band that still has schedules
// yields ErrInUse.
func (r *BandRepository) Delete(ctx context.Context, id int) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var scheduled int
		if err := tx.GetContext(ctx, &scheduled, `SELECT COUNT(*) FROM schedules WHERE band_id = $1`, id); err != nil {
			return err
		}
		if scheduled > 0 {
			return fmt.Errorf("%w: band has %d schedules", ErrInUse, scheduled)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM band_members WHERE band_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM bands WHERE id = $1`, id)
		if err != nil {
			return translate(err)
		}
		return expectAffected(result)
	})
}

// AddMember adds or updates one member of the line-up.
func (r *BandRepository) AddMember(ctx context.Context, bandID int, member types.BandMemberInput) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockBand(ctx, tx, bandID); err != nil {
			return err
		}
		return insertBandMembers(ctx, tx, bandID, []types.BandMemberInput{member})
	})
}

// ReplaceMembers swaps the whole line-up in one transaction.
func (r *BandRepository) ReplaceMembers(ctx context.Context, bandID int, members []types.BandMemberInput) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockBand(ctx, tx, bandID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM band_members WHERE band_id = $1`, bandID); err != nil {
			return err
		}
		return insertBandMembers(ctx, tx, bandID, members)
	})
}

func (r *BandRepository) RemoveMember(ctx context.Context, bandID, memberID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM band_members WHERE band_id = $1 AND member_id = $2`, bandID, memberID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func lockBand(ctx context.Context, tx *sqlx.Tx, bandID int) error {
	var id int
	if err := tx.GetContext(ctx, &id, `SELECT id FROM bands WHERE id = $1 FOR UPDATE`, bandID); err != nil {
		return notFound(err)
	}
	return nil
}

func insertBandMembers(ctx context.Context, tx *sqlx.Tx, bandID int, members []types.BandMemberInput) error {
	if len(members) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(members))
	ids := make([]int, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m.MemberID]; ok {
			continue
		}
		seen[m.MemberID] = struct{}{}
		ids = append(ids, m.MemberID)
	}

	found, err := countMembers(ctx, tx, ids)
	if err != nil {
		return err
	}
	if found != len(ids) {
		return fmt.Errorf("%w: %d of %d members", ErrNotFound, len(ids)-found, len(ids))
	}

	const query = `
		INSERT INTO band_members (band_id, member_id, role_in_band, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (band_id, member_id) DO UPDATE SET role_in_band = EXCLUDED.role_in_band`
	now := time.Now()
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, query, bandID, m.MemberID, m.RoleInBand, now); err != nil {
			return translate(err)
		}
	}
	return nil
}
