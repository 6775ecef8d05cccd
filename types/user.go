package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's login address. It is unique across accounts.
	Email string `json:"email" db:"email"`

	// Role is the user's authorization level within the club.
	Role Role `json:"role" db:"role"`

	// Prefix is the honorific shown before the name (e.g. "Mr.", "Ms.").
	Prefix string `json:"prefix" db:"prefix"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// Faculty is the academic faculty the user belongs to.
	Faculty string `json:"faculty" db:"faculty"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Identity returns the snapshot of the user that sessions cache.
func (u User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Prefix:    u.Prefix,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Faculty:   u.Faculty,
	}
}

// Identity is the authenticated principal attached to a request.
// Role is whatever the credential store reported when the snapshot was taken.
type Identity struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Prefix    string `json:"prefix"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Faculty   string `json:"faculty"`
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role   Role
	Offset int
	Limit  int
}
