package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
	"github.com/Vasheegaran/ExpenseTrack/internal/middleware"
	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/services"
	"github.com/Vasheegaran/ExpenseTrack/internal/testutil"
	"github.com/Vasheegaran/ExpenseTrack/internal/validator"
)

const cookieName = "expensetrack_session"

// testApp holds the full application stack for end-to-end tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func setupApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewServices(db, time.Hour, services.WithHashParams(testutil.FastHashParams))
	tokens := middleware.NewSessionTokens("router-test-secret", cookieName, false)
	return &testApp{DB: db, Router: New(svc, tokens, fakePinger{})}
}

// request sends a JSON request, authenticated with token when it is not empty.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result), "body: %s", rec.Body.String())
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	require.True(t, ok, "expected error object, got %s", rec.Body.String())
	return errObj["code"].(string)
}

func (app *testApp) register(t *testing.T, username, email, password string) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password)
	rec := app.request(http.MethodPost, "/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (app *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request(http.MethodPost, "/login", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return parseJSON(t, rec)["token"].(string)
}

func (app *testApp) signUp(t *testing.T, username string) string {
	t.Helper()
	email := username + "@example.com"
	app.register(t, username, email, "pw123")
	return app.login(t, email, "pw123")
}

func (app *testApp) addExpense(t *testing.T, token, amount, category, description string) uint {
	t.Helper()
	body := fmt.Sprintf(`{"amount":%q,"category":%q,"description":%q}`, amount, category, description)
	rec := app.request(http.MethodPost, "/add", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	expense := parseJSON(t, rec)["expense"].(map[string]interface{})
	return uint(expense["id"].(float64))
}

func decimalField(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %#v", v)
	return decimal.RequireFromString(s)
}

func TestScenarioA_RegisterLoginAddList(t *testing.T) {
	app := setupApp(t)

	app.register(t, "alice", "alice@example.com", "pw123")
	token := app.login(t, "alice@example.com", "pw123")
	app.addExpense(t, token, "42.50", "Food", "lunch")

	rec := app.request(http.MethodGet, "/", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dash := parseJSON(t, rec)

	expenses := dash["expenses"].([]interface{})
	require.Len(t, expenses, 1)
	first := expenses[0].(map[string]interface{})
	assert.Equal(t, "Food", first["category"])
	assert.Equal(t, "lunch", first["description"])
	assert.True(t, decimalField(t, first["amount"]).Equal(decimal.RequireFromString("42.50")))
	assert.True(t, decimalField(t, dash["total_spent"]).Equal(decimal.RequireFromString("42.50")))
}

func TestScenarioB_ByCategoryAndChart(t *testing.T) {
	app := setupApp(t)
	token := app.signUp(t, "bella")

	app.addExpense(t, token, "10", "Food", "")
	app.addExpense(t, token, "20", "Food", "")
	app.addExpense(t, token, "5", "Bills", "")

	rec := app.request(http.MethodGet, "/chart-data", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	chart := parseJSON(t, rec)

	assert.Equal(t, []interface{}{"Food", "Bills"}, chart["labels"])
	assert.Equal(t, []interface{}{float64(30), float64(5)}, chart["data"])
	assert.Equal(t, []interface{}{services.ChartPalette[0], services.ChartPalette[1]}, chart["colors"])

	dash := parseJSON(t, app.request(http.MethodGet, "/", "", token))
	categories := dash["categories"].([]interface{})
	require.Len(t, categories, 2)
	food := categories[0].(map[string]interface{})
	assert.Equal(t, "Food", food["category"])
	assert.True(t, decimalField(t, food["total"]).Equal(decimal.NewFromInt(30)))
}

func TestScenarioC_ForeignEditIsForbidden(t *testing.T) {
	app := setupApp(t)
	ownerToken := app.signUp(t, "owner")
	intruderToken := app.signUp(t, "intruder")

	id := app.addExpense(t, ownerToken, "15.00", "Transport", "bus")
	path := fmt.Sprintf("/edit/%d", id)

	rec := app.request(http.MethodPost, path, `{"amount":"999","category":"Other"}`, intruderToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = app.request(http.MethodGet, path, "", intruderToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(http.MethodPost, fmt.Sprintf("/delete/%d", id), "", intruderToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(http.MethodGet, path, "", ownerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	expense := parseJSON(t, rec)["expense"].(map[string]interface{})
	assert.True(t, decimalField(t, expense["amount"]).Equal(decimal.RequireFromString("15")))
	assert.Equal(t, "Transport", expense["category"])
}

func TestScenarioD_DuplicateEmail(t *testing.T) {
	app := setupApp(t)
	app.register(t, "dora", "dora@example.com", "pw123")

	rec := app.request(http.MethodPost, "/register",
		`{"username":"dora2","email":"DORA@example.com","password":"other"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", errorCode(t, rec))

	var count int64
	require.NoError(t, app.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestScenarioE_EmptyCSVExport(t *testing.T) {
	app := setupApp(t)
	token := app.signUp(t, "erin")

	rec := app.request(http.MethodGet, "/export/csv", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	today := time.Now().Format("2006-01-02")
	assert.Equal(t, fmt.Sprintf(`attachment; filename="expenses_%s.csv"`, today), rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Date,Category,Amount,Description\n", rec.Body.String())
}

func TestExpenseLifecycle(t *testing.T) {
	app := setupApp(t)
	token := app.signUp(t, "frank")

	id := app.addExpense(t, token, "12.345", "Shopping", "socks")

	rec := app.request(http.MethodPost, fmt.Sprintf("/edit/%d", id),
		`{"amount":"20","category":"Entertainment","description":"movie","date":"2024-05-01"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := parseJSON(t, rec)["expense"].(map[string]interface{})
	assert.Equal(t, "Entertainment", updated["category"])
	assert.True(t, strings.HasPrefix(updated["date"].(string), "2024-05-01"))

	rec = app.request(http.MethodGet, "/expenses?page=1&page_size=10", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	page := parseJSON(t, rec)
	assert.Equal(t, float64(1), page["total_items"])

	rec = app.request(http.MethodPost, fmt.Sprintf("/delete/%d", id), "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(http.MethodPost, fmt.Sprintf("/delete/%d", id), "", token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXPENSE_NOT_FOUND", errorCode(t, rec))

	dash := parseJSON(t, app.request(http.MethodGet, "/", "", token))
	assert.True(t, decimalField(t, dash["total_spent"]).IsZero())

	var audits int64
	require.NoError(t, app.DB.Model(&models.AuditLog{}).Where("action = ?", services.AuditDeleteExpense).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestBudgetFlow(t *testing.T) {
	app := setupApp(t)
	token := app.signUp(t, "gina")

	rec := app.request(http.MethodPost, "/budgets", `{"category":"Food","limit":"50"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budgetID := uint(parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(float64))

	rec = app.request(http.MethodPost, "/budgets", `{"category":"Food","limit":"80"}`, token)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "BUDGET_EXISTS", errorCode(t, rec))

	app.addExpense(t, token, "30", "Food", "")
	app.addExpense(t, token, "30", "Food", "")
	app.addExpense(t, token, "99", "Bills", "")

	rec = app.request(http.MethodGet, fmt.Sprintf("/budgets/%d/progress", budgetID), "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := parseJSON(t, rec)["progress"].(map[string]interface{})
	assert.True(t, decimalField(t, progress["spent"]).Equal(decimal.NewFromInt(60)))
	assert.True(t, decimalField(t, progress["remaining"]).Equal(decimal.NewFromInt(-10)))
	assert.Equal(t, float64(120), progress["percentage"])

	rec = app.request(http.MethodPut, fmt.Sprintf("/budgets/%d", budgetID), `{"limit":"100"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)

	other := app.signUp(t, "hank")
	rec = app.request(http.MethodDelete, fmt.Sprintf("/budgets/%d", budgetID), "", other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(http.MethodDelete, fmt.Sprintf("/budgets/%d", budgetID), "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGate(t *testing.T) {
	app := setupApp(t)

	t.Run("API clients get 401 with a login url", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/add", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		result := parseJSON(t, rec)
		assert.Equal(t, "/login?next=%2Fadd", result["login_url"])
	})

	t.Run("browsers are redirected to login with next", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/edit/3?x=1", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login?next="+url.QueryEscape("/edit/3?x=1"), rec.Header().Get("Location"))
	})

	t.Run("a forged token is rejected", func(t *testing.T) {
		forged := middleware.NewSessionTokens("another-secret", cookieName, false)
		token, err := forged.Issue(&models.Session{
			ID: "0190f3a4-0000-7000-8000-000000000001", UserID: 1,
			CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		rec := app.request(http.MethodGet, "/", "", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong password is a generic 401", func(t *testing.T) {
		app.register(t, "ivan", "ivan@example.com", "pw123")
		rec := app.request(http.MethodPost, "/login", `{"email":"ivan@example.com","password":"nope"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
	})
}

func TestSessionCookieFlow(t *testing.T) {
	app := setupApp(t)
	app.register(t, "jane", "jane@example.com", "pw123")

	form := url.Values{"email": {"jane@example.com"}, "password": {"pw123"}, "next": {"/add"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/add", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	browse := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, browse("/add").Code)

	rec = browse("/login")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = browse("/logout")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = browse("/add")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?next="))
}

func TestLogoutRevokesToken(t *testing.T) {
	app := setupApp(t)
	token := app.signUp(t, "kate")

	rec := app.request(http.MethodGet, "/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(http.MethodGet, "/profile", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		app := setupApp(t)
		rec := app.request(http.MethodGet, "/api/health", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", parseJSON(t, rec)["status"])
	})

	t.Run("database down", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewServices(db, time.Hour)
		r := New(svc, middleware.NewSessionTokens("s", cookieName, false), fakePinger{err: errors.New("refused")})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
