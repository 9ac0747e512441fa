package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending event owned by one user.
type Expense struct {
	Base
	UserID      uint            `gorm:"not null;index:idx_expenses_user_date,priority:1" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Category    Category        `gorm:"size:50;not null" json:"category"`
	Description string          `gorm:"size:200" json:"description"`
	Date        time.Time       `gorm:"not null;index:idx_expenses_user_date,priority:2" json:"date"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
