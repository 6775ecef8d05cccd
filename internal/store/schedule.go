package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/musicclub/apiserver/types"
)

// ScheduleRepository handles persistence for band bookings.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleSelect = `
	SELECT s.id, s.band_id, b.name AS band_name, s.activity,
		to_char(s.date, 'YYYY-MM-DD') AS date, s.time, s.location,
		s.created_at, s.updated_at
	FROM schedules s
	JOIN bands b ON b.id = s.band_id`

func (r *ScheduleRepository) List(ctx context.Context, filter types.ScheduleFilter) ([]types.Schedule, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.BandID > 0 {
		add("s.band_id = $%d", filter.BandID)
	}
	if filter.Activity != "" {
		add("s.activity = $%d", filter.Activity)
	}
	if filter.DateFrom != "" {
		add("s.date >= $%d", filter.DateFrom)
	}
	if filter.DateTo != "" {
		add("s.date <= $%d", filter.DateTo)
	}

	query := scheduleSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.date, s.time"

	schedules := make([]types.Schedule, 0)
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepository) Get(ctx context.Context, id int) (types.Schedule, error) {
	var schedule types.Schedule
	if err := r.db.GetContext(ctx, &schedule, scheduleSelect+` WHERE s.id = $1`, id); err != nil {
		return types.Schedule{}, notFound(err)
	}
	return schedule, nil
}

// SlotTaken reports whether another schedule already holds date, time and
// location. excludeID skips the schedule being edited.
func (r *ScheduleRepository) SlotTaken(ctx context.Context, date, clock, location string, excludeID int) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM schedules
			WHERE date = $1 AND time = $2 AND location = $3 AND id <> $4
		)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, date, clock, location, excludeID); err != nil {
		return false, err
	}
	return taken, nil
}

// Create books the slot. A concurrent booking of the same slot yields ErrAlreadyExists.
func (r *ScheduleRepository) Create(ctx context.Context, s types.Schedule) (types.Schedule, error) {
	const query = `
		INSERT INTO schedules (band_id, activity, date, time, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`
	var id int
	if err := r.db.QueryRowxContext(ctx, query, s.BandID, s.Activity, s.Date, s.Time, s.Location, time.Now()).Scan(&id); err != nil {
		return types.Schedule{}, translate(err)
	}
	return r.Get(ctx, id)
}

func (r *ScheduleRepository) Update(ctx context.Context, s types.Schedule) (types.Schedule, error) {
	const query = `
		UPDATE schedules
		SET band_id = $1, activity = $2, date = $3, time = $4, location = $5, updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query, s.BandID, s.Activity, s.Date, s.Time, s.Location, time.Now(), s.ID)
	if err != nil {
		return types.Schedule{}, translate(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Schedule{}, err
	}
	return r.Get(ctx, s.ID)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
