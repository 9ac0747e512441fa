package models

import "time"

// Base contains common columns for all owned tables. Rows are hard-deleted,
// so there is no DeletedAt column.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
