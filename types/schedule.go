package types

import "time"

// Activity is the kind of a scheduled slot.
type Activity string

const (
	ActivityRehearsal   Activity = "rehearsal"
	ActivityPerformance Activity = "performance"
)

// Valid reports whether a is a known activity.
func (a Activity) Valid() bool {
	return a == ActivityRehearsal || a == ActivityPerformance
}

// Schedule books a band into a location at a date and time.
// No two schedules share the same date, time and location.
type Schedule struct {
	ID        int       `json:"id" db:"id"`
	BandID    int       `json:"band_id" db:"band_id"`
	BandName  string    `json:"band_name" db:"band_name"`
	Activity  Activity  `json:"activity" db:"activity"`
	Date      string    `json:"date" db:"date"`
	Time      string    `json:"time" db:"time"`
	Location  string    `json:"location" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleFilter narrows schedule listings. Zero values match everything.
type ScheduleFilter struct {
	BandID   int
	Activity Activity
	DateFrom string
	DateTo   string
}
