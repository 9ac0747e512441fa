package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/pagination"
	"github.com/Vasheegaran/ExpenseTrack/internal/testutil"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		expense, err := svc.CreateExpense(ctx, user.ID, ExpenseInput{
			Amount:      amount("42.50"),
			Category:    models.CategoryFood,
			Description: "  lunch ",
		})
		testutil.AssertNoError(t, err)

		if expense.ID == 0 {
			t.Fatal("expected non-zero expense ID")
		}
		if !expense.Amount.Equal(amount("42.5")) {
			t.Errorf("expected amount 42.50, got %s", expense.Amount)
		}
		if expense.Description != "lunch" {
			t.Errorf("expected trimmed description, got %q", expense.Description)
		}
		if time.Since(expense.Date) > time.Minute {
			t.Errorf("expected date to default to now, got %v", expense.Date)
		}
	})

	t.Run("explicit_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		expense, err := svc.CreateExpense(ctx, user.ID, ExpenseInput{
			Amount: amount("5"), Category: models.CategoryBills, Date: &date,
		})
		testutil.AssertNoError(t, err)
		if !expense.Date.Equal(date) {
			t.Errorf("expected date %v, got %v", date, expense.Date)
		}
	})

	t.Run("rounds_to_cents", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		expense, err := svc.CreateExpense(ctx, user.ID, ExpenseInput{Amount: amount("10.005"), Category: models.CategoryFood})
		testutil.AssertNoError(t, err)
		if !expense.Amount.Equal(amount("10.01")) {
			t.Errorf("expected 10.01, got %s", expense.Amount)
		}
	})

	t.Run("invalid_input", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		tests := []struct {
			name string
			in   ExpenseInput
		}{
			{"zero_amount", ExpenseInput{Amount: decimal.Zero, Category: models.CategoryFood}},
			{"negative_amount", ExpenseInput{Amount: amount("-1"), Category: models.CategoryFood}},
			{"rounds_to_zero", ExpenseInput{Amount: amount("0.001"), Category: models.CategoryFood}},
			{"too_large", ExpenseInput{Amount: amount("10000000000"), Category: models.CategoryFood}},
			{"unknown_category", ExpenseInput{Amount: amount("1"), Category: "Travel"}},
			{"empty_category", ExpenseInput{Amount: amount("1")}},
			{"long_description", ExpenseInput{Amount: amount("1"), Category: models.CategoryOther, Description: strings.Repeat("x", 201)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.CreateExpense(ctx, user.ID, tt.in)
				testutil.AssertAppError(t, err, "INVALID_INPUT")
			})
		}

		var count int64
		db.Model(&models.Expense{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no expenses stored, got %d", count)
		}
	})
}

func TestListExpenses(t *testing.T) {
	ctx := context.Background()

	t.Run("newest_first_and_scoped_to_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		older := testutil.CreateTestExpenseAt(t, db, user.ID, "1", models.CategoryFood, base)
		newer := testutil.CreateTestExpenseAt(t, db, user.ID, "2", models.CategoryFood, base.Add(time.Hour))
		testutil.CreateTestExpenseAt(t, db, other.ID, "3", models.CategoryFood, base.Add(2*time.Hour))

		expenses, err := svc.ListExpenses(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if len(expenses) != 2 {
			t.Fatalf("expected 2 expenses, got %d", len(expenses))
		}
		if expenses[0].ID != newer.ID || expenses[1].ID != older.ID {
			t.Errorf("expected order [%d %d], got [%d %d]", newer.ID, older.ID, expenses[0].ID, expenses[1].ID)
		}
	})

	t.Run("empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		expenses, err := svc.ListExpenses(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if expenses == nil || len(expenses) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", expenses)
		}
	})

	t.Run("paginated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		for i := 0; i < 5; i++ {
			testutil.CreateTestExpense(t, db, user.ID, "1", models.CategoryFood)
		}

		page, err := svc.ListExpensesPage(ctx, user.ID, pagination.PageRequest{Page: 2, PageSize: 2})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 5 || page.TotalPages != 3 {
			t.Errorf("expected 5 items over 3 pages, got %d over %d", page.TotalItems, page.TotalPages)
		}
		if len(page.Data) != 2 {
			t.Errorf("expected 2 items on page 2, got %d", len(page.Data))
		}
	})
}

func TestCreateThenList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	user := testutil.CreateTestUser(t, db)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, user.ID, ExpenseInput{Amount: amount("12.34"), Category: models.CategoryShopping, Description: "socks"})
	testutil.AssertNoError(t, err)

	expenses, err := svc.ListExpenses(ctx, user.ID)
	testutil.AssertNoError(t, err)
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}
	got := expenses[0]
	if got.ID != created.ID || !got.Amount.Equal(created.Amount) || got.Category != created.Category || got.Description != created.Description {
		t.Errorf("listed expense %+v does not match created %+v", got, created)
	}
}

func TestUpdateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, "10", models.CategoryFood)

		updated, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseInput{
			Amount: amount("15.75"), Category: models.CategoryTransport, Description: "taxi",
		})
		testutil.AssertNoError(t, err)
		if !updated.Amount.Equal(amount("15.75")) || updated.Category != models.CategoryTransport {
			t.Errorf("unexpected update result %+v", updated)
		}
		if !updated.Date.Equal(expense.Date) {
			t.Errorf("date should be unchanged, got %v want %v", updated.Date, expense.Date)
		}

		var reloaded models.Expense
		testutil.AssertNoError(t, db.First(&reloaded, expense.ID).Error)
		if reloaded.Description != "taxi" {
			t.Errorf("expected persisted description taxi, got %q", reloaded.Description)
		}
	})

	t.Run("forbidden_for_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, owner.ID, "10", models.CategoryFood)

		_, err := svc.UpdateExpense(ctx, intruder.ID, expense.ID, ExpenseInput{Amount: amount("99"), Category: models.CategoryBills})
		testutil.AssertAppError(t, err, "FORBIDDEN")

		var reloaded models.Expense
		testutil.AssertNoError(t, db.First(&reloaded, expense.ID).Error)
		if !reloaded.Amount.Equal(amount("10")) || reloaded.Category != models.CategoryFood {
			t.Errorf("foreign update must not mutate the record, got %+v", reloaded)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateExpense(ctx, user.ID, 99999, ExpenseInput{Amount: amount("1"), Category: models.CategoryFood})
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})

	t.Run("invalid_input", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, "10", models.CategoryFood)

		_, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseInput{Amount: amount("-5"), Category: models.CategoryFood})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("persistence_failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, "10", models.CategoryFood)

		testutil.AssertNoError(t, db.Exec(`CREATE TRIGGER fail_update BEFORE UPDATE ON expenses
			BEGIN SELECT RAISE(ABORT, 'disk on fire'); END`).Error)

		_, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseInput{Amount: amount("20"), Category: models.CategoryFood})
		testutil.AssertAppErrorMessage(t, err, "UPDATE_FAILED", "disk on fire")

		var reloaded models.Expense
		testutil.AssertNoError(t, db.First(&reloaded, expense.ID).Error)
		if !reloaded.Amount.Equal(amount("10")) {
			t.Errorf("failed update must roll back, got amount %s", reloaded.Amount)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("valid_then_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, "10", models.CategoryFood)

		testutil.AssertNoError(t, svc.DeleteExpense(ctx, user.ID, expense.ID))

		var count int64
		db.Model(&models.Expense{}).Where("id = ?", expense.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected expense to be hard-deleted, found %d rows", count)
		}

		err := svc.DeleteExpense(ctx, user.ID, expense.ID)
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})

	t.Run("forbidden_for_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, owner.ID, "10", models.CategoryFood)

		err := svc.DeleteExpense(ctx, intruder.ID, expense.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")

		var count int64
		db.Model(&models.Expense{}).Where("id = ?", expense.ID).Count(&count)
		if count != 1 {
			t.Error("foreign delete must not remove the record")
		}
	})
}

func TestGetExpense(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	owner := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestExpense(t, db, owner.ID, "7.25", models.CategoryOther)
	ctx := context.Background()

	got, err := svc.GetExpense(ctx, owner.ID, expense.ID)
	testutil.AssertNoError(t, err)
	if got.ID != expense.ID {
		t.Errorf("expected expense %d, got %d", expense.ID, got.ID)
	}

	_, err = svc.GetExpense(ctx, other.ID, expense.ID)
	testutil.AssertAppError(t, err, "FORBIDDEN")

	_, err = svc.GetExpense(ctx, owner.ID, expense.ID+1000)
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
}
