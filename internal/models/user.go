package models

// User represents the user model in the database
type User struct {
	Base
	Username string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email    string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password string    `gorm:"size:255;not null" json:"-"`
	Expenses []Expense `gorm:"foreignKey:UserID" json:"expenses,omitempty"`
	Budgets  []Budget  `gorm:"foreignKey:UserID" json:"budgets,omitempty"`
}
