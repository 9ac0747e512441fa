package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/pagination"
)

// UserServicer defines the contract for registering and authenticating users.
type UserServicer interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	// Verify returns the user whose credentials match, or nil when the
	// email is unknown or the password is wrong. A non-nil error means
	// the lookup itself failed.
	Verify(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// SessionServicer defines the contract for server-side login sessions.
type SessionServicer interface {
	CreateSession(ctx context.Context, userID uint, ipAddress, userAgent string) (*models.Session, error)
	ValidateSession(ctx context.Context, sessionID string) (*models.Session, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

// ExpenseInput carries the caller-supplied fields of an expense.
// A nil Date means "now" on create and "unchanged" on update.
type ExpenseInput struct {
	Amount      decimal.Decimal
	Category    models.Category
	Description string
	Date        *time.Time
}

// ExpenseServicer defines the contract for the per-user expense ledger.
type ExpenseServicer interface {
	ListExpenses(ctx context.Context, userID uint) ([]models.Expense, error)
	ListExpensesPage(ctx context.Context, userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	GetExpense(ctx context.Context, userID, expenseID uint) (*models.Expense, error)
	CreateExpense(ctx context.Context, userID uint, in ExpenseInput) (*models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID uint, in ExpenseInput) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID uint) error
}

// BudgetProgress contains spending vs limit for one budget.
type BudgetProgress struct {
	BudgetID   uint            `json:"budget_id"`
	Category   models.Category `json:"category"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage float64         `json:"percentage"`
}

// BudgetServicer defines the contract for per-category budgets.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID uint, category models.Category, limit decimal.Decimal) (*models.Budget, error)
	ListBudgets(ctx context.Context, userID uint) ([]models.Budget, error)
	GetBudget(ctx context.Context, userID, budgetID uint) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID uint, limit decimal.Decimal) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID uint) error
	GetBudgetProgress(ctx context.Context, userID, budgetID uint) (*BudgetProgress, error)
}

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category models.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ChartSeries is the payload of the spending-by-category chart.
type ChartSeries struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
	Colors []string  `json:"colors"`
}

// Dashboard is a consistent snapshot of a user's expenses and totals.
type Dashboard struct {
	Expenses   []models.Expense `json:"expenses"`
	TotalSpent decimal.Decimal  `json:"total_spent"`
	Categories []CategoryTotal  `json:"categories"`
}

// AggregationServicer defines the contract for spending summaries.
type AggregationServicer interface {
	TotalSpent(ctx context.Context, userID uint) (decimal.Decimal, error)
	ByCategory(ctx context.Context, userID uint) ([]CategoryTotal, error)
	ChartSeries(ctx context.Context, userID uint) (*ChartSeries, error)
	Dashboard(ctx context.Context, userID uint) (*Dashboard, error)
}

// ExportServicer defines the contract for downloading a user's expenses.
type ExportServicer interface {
	WriteCSV(ctx context.Context, userID uint, w io.Writer) error
	WriteXLSX(ctx context.Context, userID uint, w io.Writer) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
