package services

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
)

// ChartPalette is assigned to chart slices in order, wrapping around.
var ChartPalette = []string{"#4e73df", "#1cc88a", "#36b9cc", "#f6c23e", "#e74a3b"}

// aggregationService computes spending summaries from the expense ledger.
type aggregationService struct {
	db *gorm.DB
}

// NewAggregationService creates a new AggregationServicer.
func NewAggregationService(db *gorm.DB) AggregationServicer {
	return &aggregationService{db: db}
}

// TotalSpent returns the sum of all the user's expenses, zero when there are none.
func (s *aggregationService) TotalSpent(ctx context.Context, userID uint) (decimal.Decimal, error) {
	return sumAmounts(s.db.WithContext(ctx).Model(&models.Expense{}).Where("user_id = ?", userID))
}

// ByCategory returns per-category totals, largest first and then by name.
// Categories without expenses are omitted.
func (s *aggregationService) ByCategory(ctx context.Context, userID uint) ([]CategoryTotal, error) {
	return totalsByCategory(s.db.WithContext(ctx), userID)
}

// ChartSeries shapes ByCategory into parallel label, value and color arrays.
func (s *aggregationService) ChartSeries(ctx context.Context, userID uint) (*ChartSeries, error) {
	totals, err := s.ByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewChartSeries(totals), nil
}

// Dashboard reads the list and both aggregates in one transaction so they agree.
func (s *aggregationService) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	var dash Dashboard
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expenses, err := listExpenses(tx, userID)
		if err != nil {
			return err
		}
		total, err := sumAmounts(tx.Model(&models.Expense{}).Where("user_id = ?", userID))
		if err != nil {
			return err
		}
		categories, err := totalsByCategory(tx, userID)
		if err != nil {
			return err
		}
		dash = Dashboard{Expenses: expenses, TotalSpent: total, Categories: categories}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &dash, nil
}

// NewChartSeries builds chart arrays of equal length from category totals.
func NewChartSeries(totals []CategoryTotal) *ChartSeries {
	series := &ChartSeries{
		Labels: make([]string, 0, len(totals)),
		Data:   make([]float64, 0, len(totals)),
		Colors: make([]string, 0, len(totals)),
	}
	for i, t := range totals {
		series.Labels = append(series.Labels, string(t.Category))
		series.Data = append(series.Data, t.Total.InexactFloat64())
		series.Colors = append(series.Colors, ChartPalette[i%len(ChartPalette)])
	}
	return series
}

// sumAmounts returns COALESCE(SUM(amount), 0) for the query, rounded to cents.
func sumAmounts(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(amount), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return total.Round(amountPlaces), nil
}

func totalsByCategory(db *gorm.DB, userID uint) ([]CategoryTotal, error) {
	var rows []CategoryTotal
	err := db.Model(&models.Expense{}).
		Select("category, SUM(amount) AS total").
		Where("user_id = ?", userID).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Ordered here rather than in SQL: SQLite sums are floats, and ties
	// must compare on the rounded value.
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(amountPlaces)
	}
	slices.SortFunc(rows, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})

	if rows == nil {
		rows = []CategoryTotal{}
	}
	return rows, nil
}
