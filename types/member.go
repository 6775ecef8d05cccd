package types

// MemberStatus is the standing of a club member.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Valid reports whether s is a known member status.
func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberInactive
}

// Member is a user enrolled in the club roster.
type Member struct {
	// ID is the roster identifier, distinct from the user id.
	ID int `json:"id" db:"id"`

	// UserID links the member to their account.
	UserID int `json:"user_id" db:"user_id"`

	// Name is the display name composed from prefix, first and last name.
	Name string `json:"name" db:"name"`

	Email   string `json:"email" db:"email"`
	Faculty string `json:"faculty" db:"faculty"`

	// Role mirrors the account role of the linked user.
	Role Role `json:"role" db:"role"`

	// JoinDate is the day the member joined, formatted YYYY-MM-DD.
	JoinDate string `json:"join_date" db:"join_date"`

	Status MemberStatus `json:"status" db:"status"`
}

// NonMember is a user that has no roster entry yet.
type NonMember struct {
	ID      int    `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Email   string `json:"email" db:"email"`
	Faculty string `json:"faculty" db:"faculty"`
}
