package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRole is returned when a requested role is not Admin, Committee or Member.
	ErrInvalidRole = errors.New("invalid role")

	// ErrLastAdminProtected is returned when a change would leave no Admin.
	ErrLastAdminProtected = errors.New("cannot demote the last admin")

	// ErrSelfDemotionForbidden is returned when an Admin demotes themself through the single-change path.
	ErrSelfDemotionForbidden = errors.New("admins cannot demote themselves")

	// ErrNoChanges is returned for an empty bulk request.
	ErrNoChanges = errors.New("no changes requested")

	// ErrInvalidInput marks request data that failed domain validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict marks a write that collides with existing data.
	ErrConflict = errors.New("conflict")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
