package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/pagination"
)

const (
	maxDescriptionLength = 200
	amountPlaces         = 2
)

// expenseService handles the expense ledger.
type expenseService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db, now: time.Now}
}

// ownedBy scopes a query to one user's expenses in list order.
func ownedBy(userID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID).Order("date DESC, id DESC")
	}
}

// listExpenses returns all of the user's expenses, newest first.
func listExpenses(db *gorm.DB, userID uint) ([]models.Expense, error) {
	expenses := []models.Expense{}
	if err := db.Scopes(ownedBy(userID)).Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

// ListExpenses returns every expense of the user, newest first.
func (s *expenseService) ListExpenses(ctx context.Context, userID uint) ([]models.Expense, error) {
	return listExpenses(s.db.WithContext(ctx), userID)
}

// ListExpensesPage returns one page of the user's expenses.
func (s *expenseService) ListExpensesPage(ctx context.Context, userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	page = page.Normalize()
	db := s.db.WithContext(ctx)

	var totalItems int64
	if err := db.Model(&models.Expense{}).Where("user_id = ?", userID).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	if err := db.Scopes(ownedBy(userID), pagination.Paginate(page)).Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(expenses, page, totalItems)
	return &resp, nil
}

// GetExpense returns one expense owned by the user.
func (s *expenseService) GetExpense(ctx context.Context, userID, expenseID uint) (*models.Expense, error) {
	return loadOwnedExpense(s.db.WithContext(ctx), userID, expenseID)
}

// CreateExpense records a new expense for the user.
func (s *expenseService) CreateExpense(ctx context.Context, userID uint, in ExpenseInput) (*models.Expense, error) {
	in, err := normalizeExpenseInput(in)
	if err != nil {
		return nil, err
	}

	date := s.now()
	if in.Date != nil {
		date = *in.Date
	}

	expense := &models.Expense{
		UserID:      userID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        date.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expense, nil
}

// UpdateExpense replaces the amount, category and description of an
// expense owned by the user. The date changes only when in.Date is set.
func (s *expenseService) UpdateExpense(ctx context.Context, userID, expenseID uint, in ExpenseInput) (*models.Expense, error) {
	in, err := normalizeExpenseInput(in)
	if err != nil {
		return nil, err
	}

	var updated *models.Expense
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := loadOwnedExpense(tx, userID, expenseID)
		if err != nil {
			return err
		}

		expense.Amount = in.Amount
		expense.Category = in.Category
		expense.Description = in.Description
		if in.Date != nil {
			expense.Date = in.Date.UTC()
		}

		if err := tx.Save(expense).Error; err != nil {
			return updateFailed(err)
		}
		updated = expense
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		// Commit failed.
		return nil, updateFailed(err)
	}
	return updated, nil
}

func updateFailed(err error) *apperrors.AppError {
	return apperrors.Wrapf(apperrors.ErrUpdateFailed, err, "Error updating expense: %v", err)
}

// DeleteExpense permanently removes an expense owned by the user.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := loadOwnedExpense(tx, userID, expenseID)
		if err != nil {
			return err
		}
		if err := tx.Delete(expense).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// loadOwnedExpense distinguishes a missing expense from someone else's.
func loadOwnedExpense(db *gorm.DB, userID, expenseID uint) (*models.Expense, error) {
	var expense models.Expense
	if err := db.First(&expense, expenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if expense.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &expense, nil
}

// normalizeExpenseInput rounds the amount to cents and validates every field.
func normalizeExpenseInput(in ExpenseInput) (ExpenseInput, error) {
	in.Amount = in.Amount.Round(amountPlaces)
	in.Description = strings.TrimSpace(in.Description)

	if !in.Amount.IsPositive() {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be a positive number")
	}
	if in.Amount.GreaterThanOrEqual(maxAmount) {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount is too large")
	}
	if !in.Category.IsValid() {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category")
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return in, apperrors.WithMessage(apperrors.ErrInvalidInput, "Description must be at most 200 characters")
	}
	return in, nil
}

// maxAmount is the first value that no longer fits numeric(12,2).
var maxAmount = decimal.New(1, 10)
