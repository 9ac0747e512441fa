package models

import "github.com/shopspring/decimal"

// Budget is a spending ceiling for one category. A user has at most one
// budget per category.
type Budget struct {
	Base
	UserID   uint            `gorm:"not null;uniqueIndex:idx_budgets_user_category,priority:1" json:"user_id"`
	Category Category        `gorm:"size:50;not null;uniqueIndex:idx_budgets_user_category,priority:2" json:"category"`
	Limit    decimal.Decimal `gorm:"column:limit_amount;type:numeric(12,2);not null" json:"limit"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
