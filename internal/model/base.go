package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all persisted models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Touch stamps both timestamps for a new record.
func (b *Base) Touch(now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
}

// DateRange is an inclusive calendar window. Nil bounds mean "not supplied".
type DateRange struct {
	Start *Date
	End   *Date
}

// Complete reports whether both bounds were supplied.
func (r DateRange) Complete() bool {
	return r.Start != nil && r.End != nil
}
