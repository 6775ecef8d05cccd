package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
)

// ScheduleRepository defines persistence operations for schedules.
type ScheduleRepository interface {
	List(ctx context.Context, filter types.ScheduleFilter) ([]types.Schedule, error)
	Get(ctx context.Context, id int) (types.Schedule, error)
	SlotTaken(ctx context.Context, date, clock, location string, excludeID int) (bool, error)
	Create(ctx context.Context, s types.Schedule) (types.Schedule, error)
	Update(ctx context.Context, s types.Schedule) (types.Schedule, error)
	Delete(ctx context.Context, id int) error
}

// BandChecker reports whether a band exists.
type BandChecker interface {
	Exists(ctx context.Context, id int) (bool, error)
}

// ScheduleService books bands into rooms. A date, time and location triple
// can hold at most one schedule.
type ScheduleService struct {
	repo  ScheduleRepository
	bands BandChecker
}

func NewScheduleService(repo ScheduleRepository, bands BandChecker) *ScheduleService {
	return &ScheduleService{repo: repo, bands: bands}
}

// List applies the filter. An unrecognised activity is ignored rather than rejected.
func (s *ScheduleService) List(ctx context.Context, filter types.ScheduleFilter) ([]types.Schedule, error) {
	if !filter.Activity.Valid() {
		filter.Activity = ""
	}
	if filter.DateFrom != "" {
		if _, err := checkDate("date_from", filter.DateFrom); err != nil {
			return nil, err
		}
	}
	if filter.DateTo != "" {
		if _, err := checkDate("date_to", filter.DateTo); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *ScheduleService) Get(ctx context.Context, id int) (types.Schedule, error) {
	return s.repo.Get(ctx, id)
}

func (s *ScheduleService) Create(ctx context.Context, in types.Schedule) (types.Schedule, error) {
	schedule, err := s.prepare(ctx, in, 0)
	if err != nil {
		return types.Schedule{}, err
	}
	created, err := s.repo.Create(ctx, schedule)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Schedule{}, slotConflict(schedule)
	}
	return created, err
}

func (s *ScheduleService) Update(ctx context.Context, id int, in types.Schedule) (types.Schedule, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return types.Schedule{}, err
	}
	schedule, err := s.prepare(ctx, in, id)
	if err != nil {
		return types.Schedule{}, err
	}
	schedule.ID = id
	updated, err := s.repo.Update(ctx, schedule)
	if errors.Is(err, store.ErrAlreadyExists) {
		return types.Schedule{}, slotConflict(schedule)
	}
	return updated, err
}

func (s *ScheduleService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *ScheduleService) prepare(ctx context.Context, in types.Schedule, excludeID int) (types.Schedule, error) {
	if in.BandID <= 0 {
		return types.Schedule{}, invalidInput("band_id is required")
	}
	if !in.Activity.Valid() {
		return types.Schedule{}, invalidInput("activity must be rehearsal or performance")
	}
	if _, err := checkDate("date", in.Date); err != nil {
		return types.Schedule{}, err
	}
	clock, err := checkClock("time", in.Time)
	if err != nil {
		return types.Schedule{}, err
	}
	location, err := required("location", in.Location)
	if err != nil {
		return types.Schedule{}, err
	}

	exists, err := s.bands.Exists(ctx, in.BandID)
	if err != nil {
		return types.Schedule{}, err
	}
	if !exists {
		return types.Schedule{}, fmt.Errorf("band %d: %w", in.BandID, store.ErrNotFound)
	}

	out := types.Schedule{
		BandID:   in.BandID,
		Activity: in.Activity,
		Date:     in.Date,
		Time:     clock,
		Location: location,
	}
	taken, err := s.repo.SlotTaken(ctx, out.Date, out.Time, out.Location, excludeID)
	if err != nil {
		return types.Schedule{}, err
	}
	if taken {
		return types.Schedule{}, slotConflict(out)
	}
	return out, nil
}

func slotConflict(s types.Schedule) error {
	return conflict("%s is already booked on %s at %s", s.Location, s.Date, s.Time)
}
