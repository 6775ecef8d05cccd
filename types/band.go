package types

import "time"

// Band is an ensemble of club members.
type Band struct {
	ID          int     `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Year        int     `json:"year" db:"year"`
	Description *string `json:"description" db:"description"`

	// MemberCount is only populated by listings.
	MemberCount int `json:"member_count" db:"member_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BandMember is a roster entry seen through its band.
type BandMember struct {
	MemberID     int          `json:"member_id" db:"member_id"`
	UserID       int          `json:"user_id" db:"user_id"`
	Name         string       `json:"name" db:"name"`
	Email        string       `json:"email" db:"email"`
	Faculty      string       `json:"faculty" db:"faculty"`
	UserRole     Role         `json:"user_role" db:"user_role"`
	MemberStatus MemberStatus `json:"member_status" db:"member_status"`
	RoleInBand   *string      `json:"role_in_band" db:"role_in_band"`
	JoinedAt     time.Time    `json:"joined_at" db:"joined_at"`
}

// BandMemberInput assigns a member to a band.
type BandMemberInput struct {
	MemberID   int     `json:"member_id" validate:"required,gt=0"`
	RoleInBand *string `json:"role_in_band"`
}

// BandSchedule is the short schedule view embedded in a band.
type BandSchedule struct {
	ID       int      `json:"id" db:"id"`
	Activity Activity `json:"activity" db:"activity"`
	Date     string   `json:"date" db:"date"`
	Time     string   `json:"time" db:"time"`
	Location string   `json:"location" db:"location"`
}

// BandDetail is a band with its schedules and members.
type BandDetail struct {
	Band
	Schedules []BandSchedule `json:"schedules"`
	Members   []BandMember   `json:"members"`
}
