package services

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/testutil"
)

func TestTotalSpent(t *testing.T) {
	ctx := context.Background()

	t.Run("sums_only_own_expenses", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAggregationService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)

		testutil.CreateTestExpense(t, db, user.ID, "10.10", models.CategoryFood)
		testutil.CreateTestExpense(t, db, user.ID, "20.20", models.CategoryBills)
		testutil.CreateTestExpense(t, db, other.ID, "1000", models.CategoryFood)

		total, err := svc.TotalSpent(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if !total.Equal(amount("30.30")) {
			t.Errorf("expected 30.30, got %s", total)
		}
	})

	t.Run("zero_when_empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAggregationService(db)
		user := testutil.CreateTestUser(t, db)

		total, err := svc.TotalSpent(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if !total.Equal(decimal.Zero) {
			t.Errorf("expected 0, got %s", total)
		}
	})
}

func TestByCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("ordered_by_total_then_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAggregationService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestExpense(t, db, user.ID, "5", models.CategoryTransport)
		testutil.CreateTestExpense(t, db, user.ID, "5", models.CategoryBills)
		testutil.CreateTestExpense(t, db, user.ID, "40", models.CategoryShopping)

		totals, err := svc.ByCategory(ctx, user.ID)
		testutil.AssertNoError(t, err)

		want := []models.Category{models.CategoryShopping, models.CategoryBills, models.CategoryTransport}
		if len(totals) != len(want) {
			t.Fatalf("expected %d categories, got %d", len(want), len(totals))
		}
		for i, c := range want {
			if totals[i].Category != c {
				t.Errorf("position %d: expected %s, got %s", i, c, totals[i].Category)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAggregationService(db)
		user := testutil.CreateTestUser(t, db)

		totals, err := svc.ByCategory(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if totals == nil || len(totals) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", totals)
		}
	})
}

// Food 10 + Food 20 + Bills 5 gives {Food: 30, Bills: 5}.
func TestChartSeries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAggregationService(db)
	user := testutil.CreateTestUser(t, db)
	ctx := context.Background()

	testutil.CreateTestExpense(t, db, user.ID, "10", models.CategoryFood)
	testutil.CreateTestExpense(t, db, user.ID, "20", models.CategoryFood)
	testutil.CreateTestExpense(t, db, user.ID, "5", models.CategoryBills)

	totals, err := svc.ByCategory(ctx, user.ID)
	testutil.AssertNoError(t, err)
	if len(totals) != 2 || !totals[0].Total.Equal(amount("30")) || !totals[1].Total.Equal(amount("5")) {
		t.Fatalf("unexpected totals %+v", totals)
	}

	series, err := svc.ChartSeries(ctx, user.ID)
	testutil.AssertNoError(t, err)

	if !reflect.DeepEqual(series.Labels, []string{"Food", "Bills"}) {
		t.Errorf("unexpected labels %v", series.Labels)
	}
	if !reflect.DeepEqual(series.Data, []float64{30, 5}) {
		t.Errorf("unexpected data %v", series.Data)
	}
	if !reflect.DeepEqual(series.Colors, []string{"#4e73df", "#1cc88a"}) {
		t.Errorf("unexpected colors %v", series.Colors)
	}
}

func TestNewChartSeries_PaletteWraps(t *testing.T) {
	totals := make([]CategoryTotal, 0, len(models.Categories))
	for i, c := range models.Categories {
		totals = append(totals, CategoryTotal{Category: c, Total: decimal.NewFromInt(int64(100 - i))})
	}

	series := NewChartSeries(totals)

	if len(series.Colors) != len(series.Labels) {
		t.Fatalf("expected one color per label, got %d colors for %d labels", len(series.Colors), len(series.Labels))
	}
	if series.Colors[5] != ChartPalette[0] {
		t.Errorf("expected sixth color to wrap to %s, got %s", ChartPalette[0], series.Colors[5])
	}
}

func TestDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAggregationService(db)
	user := testutil.CreateTestUser(t, db)
	ctx := context.Background()

	testutil.CreateTestExpense(t, db, user.ID, "42.50", models.CategoryFood)

	dash, err := svc.Dashboard(ctx, user.ID)
	testutil.AssertNoError(t, err)

	if len(dash.Expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(dash.Expenses))
	}
	if !dash.TotalSpent.Equal(amount("42.50")) {
		t.Errorf("expected total 42.50, got %s", dash.TotalSpent)
	}
	if len(dash.Categories) != 1 || dash.Categories[0].Category != models.CategoryFood {
		t.Errorf("unexpected categories %+v", dash.Categories)
	}
}
