package services

import (
	"context"
	"testing"

	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySchedules struct {
	items  map[int]types.Schedule
	nextID int
}

func newMemorySchedules() *memorySchedules {
	return &memorySchedules{items: map[int]types.Schedule{}, nextID: 1}
}

func (m *memorySchedules) List(_ context.Context, _ types.ScheduleFilter) ([]types.Schedule, error) {
	out := make([]types.Schedule, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	return out, nil
}

func (m *memorySchedules) Get(_ context.Context, id int) (types.Schedule, error) {
	s, ok := m.items[id]
	if !ok {
		return types.Schedule{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memorySchedules) SlotTaken(_ context.Context, date, clock, location string, excludeID int) (bool, error) {
	for id, s := range m.items {
		if id != excludeID && s.Date == date && s.Time == clock && s.Location == location {
			return true, nil
		}
	}
	return false, nil
}

func (m *memorySchedules) Create(_ context.Context, s types.Schedule) (types.Schedule, error) {
	s.ID = m.nextID
	m.nextID++
	m.items[s.ID] = s
	return s, nil
}

func (m *memorySchedules) Update(_ context.Context, s types.Schedule) (types.Schedule, error) {
	if _, ok := m.items[s.ID]; !ok {
		return types.Schedule{}, store.ErrNotFound
	}
	m.items[s.ID] = s
	return s, nil
}

func (m *memorySchedules) Delete(_ context.Context, id int) error {
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type knownBands map[int]bool

func (k knownBands) Exists(_ context.Context, id int) (bool, error) { return k[id], nil }

func TestScheduleCreateRejectsDoubleBooking(t *testing.T) {
	svc := NewScheduleService(newMemorySchedules(), knownBands{1: true, 2: true})
	ctx := context.Background()

	first, err := svc.Create(ctx, types.Schedule{BandID: 1, Activity: types.ActivityRehearsal, Date: "2025-03-01", Time: "18:00:00", Location: " Room A "})
	require.NoError(t, err)
	assert.Equal(t, "18:00", first.Time)
	assert.Equal(t, "Room A", first.Location)

	_, err = svc.Create(ctx, types.Schedule{BandID: 2, Activity: types.ActivityPerformance, Date: "2025-03-01", Time: "18:00", Location: "Room A"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, types.Schedule{BandID: 2, Activity: types.ActivityPerformance, Date: "2025-03-01", Time: "19:00", Location: "Room A"})
	assert.NoError(t, err)
}

func TestScheduleUpdateKeepsOwnSlot(t *testing.T) {
	svc := NewScheduleService(newMemorySchedules(), knownBands{1: true})
	ctx := context.Background()

	s, err := svc.Create(ctx, types.Schedule{BandID: 1, Activity: types.ActivityRehearsal, Date: "2025-03-01", Time: "18:00", Location: "Room A"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, s.ID, types.Schedule{BandID: 1, Activity: types.ActivityPerformance, Date: "2025-03-01", Time: "18:00", Location: "Room A"})
	require.NoError(t, err)
	assert.Equal(t, types.ActivityPerformance, updated.Activity)

	_, err = svc.Update(ctx, 99, types.Schedule{BandID: 1, Activity: types.ActivityPerformance, Date: "2025-03-01", Time: "18:00", Location: "Room A"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScheduleValidation(t *testing.T) {
	svc := NewScheduleService(newMemorySchedules(), knownBands{1: true})
	ctx := context.Background()
	valid := types.Schedule{BandID: 1, Activity: types.ActivityRehearsal, Date: "2025-03-01", Time: "18:00", Location: "Room A"}

	tests := []struct {
		name   string
		mutate func(*types.Schedule)
		want   error
	}{
		{"bad activity", func(s *types.Schedule) { s.Activity = "party" }, ErrInvalidInput},
		{"bad date", func(s *types.Schedule) { s.Date = "01/03/2025" }, ErrInvalidInput},
		{"bad time", func(s *types.Schedule) { s.Time = "6pm" }, ErrInvalidInput},
		{"no location", func(s *types.Schedule) { s.Location = "  " }, ErrInvalidInput},
		{"missing band id", func(s *types.Schedule) { s.BandID = 0 }, ErrInvalidInput},
		{"unknown band", func(s *types.Schedule) { s.BandID = 7 }, store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScheduleListIgnoresUnknownActivity(t *testing.T) {
	svc := NewScheduleService(newMemorySchedules(), knownBands{})
	_, err := svc.List(context.Background(), types.ScheduleFilter{Activity: "party"})
	assert.NoError(t, err)

	_, err = svc.List(context.Background(), types.ScheduleFilter{DateFrom: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
