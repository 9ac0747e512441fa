package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/password"
)

// TestPassword is the plaintext password of users made by CreateTestUser.
const TestPassword = "password123"

// FastHashParams keep argon2id cheap enough for tests.
var FastHashParams = password.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique username and email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	n := nextID()
	username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.FirstName()), n)
	return CreateTestUserWithPassword(t, db, username, username+"@example.com", TestPassword)
}

// CreateTestUserWithPassword creates a user with the given credentials.
func CreateTestUserWithPassword(t *testing.T, db *gorm.DB, username, email, plain string) *models.User {
	t.Helper()

	hash, err := password.HashWithParams(plain, FastHashParams)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestExpense creates an expense dated today with the given amount and category.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID uint, amount string, category models.Category) *models.Expense {
	t.Helper()
	return CreateTestExpenseAt(t, db, userID, amount, category, time.Now().UTC())
}

// CreateTestExpenseAt creates an expense on the given date.
func CreateTestExpenseAt(t *testing.T, db *gorm.DB, userID uint, amount string, category models.Category, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Description: gofakeit.Sentence(3),
		Date:        date.UTC(),
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestBudget creates a budget for the given category.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID uint, category models.Category, limit string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:   userID,
		Category: category,
		Limit:    decimal.RequireFromString(limit),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
