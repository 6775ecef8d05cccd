package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectPending ProjectStatus = "pending"
	ProjectOngoing ProjectStatus = "ongoing"
	ProjectDone    ProjectStatus = "done"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectOngoing, ProjectDone:
		return true
	}
	return false
}

// Project is a budgeted club initiative.
type Project struct {
	ID          int             `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description" db:"description"`
	Budget      decimal.Decimal `json:"budget" db:"budget"`
	StartDate   string          `json:"start_date" db:"start_date"`
	EndDate     string          `json:"end_date" db:"end_date"`
	Status      ProjectStatus   `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
