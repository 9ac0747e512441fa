package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates the user's budget for a category. A second budget
// for the same category is rejected.
func (s *budgetService) CreateBudget(ctx context.Context, userID uint, category models.Category, limit decimal.Decimal) (*models.Budget, error) {
	if !category.IsValid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category")
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:   userID,
		Category: category,
		Limit:    limit,
	}
	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrBudgetExists
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// ListBudgets returns all of the user's budgets ordered by category.
func (s *budgetService) ListBudgets(ctx context.Context, userID uint) ([]models.Budget, error) {
	budgets := []models.Budget{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("category ASC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudget returns one budget owned by the user.
func (s *budgetService) GetBudget(ctx context.Context, userID, budgetID uint) (*models.Budget, error) {
	return loadOwnedBudget(s.db.WithContext(ctx), userID, budgetID)
}

// UpdateBudget changes the limit of a budget owned by the user.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID uint, limit decimal.Decimal) (*models.Budget, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	var updated *models.Budget
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := loadOwnedBudget(tx, userID, budgetID)
		if err != nil {
			return err
		}
		budget.Limit = limit
		if err := tx.Save(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updated = budget
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBudget permanently removes a budget owned by the user.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := loadOwnedBudget(tx, userID, budgetID)
		if err != nil {
			return err
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetBudgetProgress compares the budget limit with everything the user has
// spent in its category. Remaining goes negative once the limit is exceeded.
func (s *budgetService) GetBudgetProgress(ctx context.Context, userID, budgetID uint) (*BudgetProgress, error) {
	db := s.db.WithContext(ctx)

	budget, err := loadOwnedBudget(db, userID, budgetID)
	if err != nil {
		return nil, err
	}

	spent, err := sumAmounts(db.Model(&models.Expense{}).
		Where("user_id = ? AND category = ?", userID, budget.Category))
	if err != nil {
		return nil, err
	}

	var percentage float64
	if budget.Limit.IsPositive() {
		percentage = spent.Div(budget.Limit).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	return &BudgetProgress{
		BudgetID:   budget.ID,
		Category:   budget.Category,
		Limit:      budget.Limit,
		Spent:      spent,
		Remaining:  budget.Limit.Sub(spent),
		Percentage: percentage,
	}, nil
}

func loadOwnedBudget(db *gorm.DB, userID, budgetID uint) (*models.Budget, error) {
	var budget models.Budget
	if err := db.First(&budget, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &budget, nil
}

func normalizeLimit(limit decimal.Decimal) (decimal.Decimal, error) {
	limit = limit.Round(amountPlaces)
	if !limit.IsPositive() {
		return limit, apperrors.WithMessage(apperrors.ErrInvalidInput, "Limit must be a positive number")
	}
	if limit.GreaterThanOrEqual(maxAmount) {
		return limit, apperrors.WithMessage(apperrors.ErrInvalidInput, "Limit is too large")
	}
	return limit, nil
}
