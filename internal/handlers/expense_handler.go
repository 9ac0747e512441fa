package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Vasheegaran/ExpenseTrack/internal/models"
	"github.com/Vasheegaran/ExpenseTrack/internal/pagination"
	"github.com/Vasheegaran/ExpenseTrack/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// ExpenseRequest is the payload of the add and edit forms. Date accepts
// YYYY-MM-DD or RFC 3339 and defaults to now on create.
type ExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount" form:"amount" binding:"required,positive_amount" swaggertype:"string" example:"12.50"`
	Category    models.Category `json:"category" form:"category" binding:"required,expense_category"`
	Description string          `json:"description" form:"description" binding:"max=200"`
	Date        string          `json:"date" form:"date" example:"2024-03-01"`
}

// FormResponse carries the choices for the expense form.
type FormResponse struct {
	Categories []models.Category `json:"categories"`
}

// EditFormResponse is the expense being edited plus the form choices.
type EditFormResponse struct {
	Expense    *models.Expense   `json:"expense"`
	Categories []models.Category `json:"categories"`
}

func (r *ExpenseRequest) input() (services.ExpenseInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		Date:        date,
	}, nil
}

func expenseChanges(in services.ExpenseInput) map[string]interface{} {
	return map[string]interface{}{
		"amount":   in.Amount.StringFixed(2),
		"category": in.Category,
	}
}

// AddForm returns what the add-expense form needs.
// @Summary     Expense form
// @Description List the categories an expense may use
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} FormResponse "Form choices"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /add [get]
func (h *ExpenseHandler) AddForm(c *gin.Context) {
	c.JSON(http.StatusOK, FormResponse{Categories: models.Categories})
}

// CreateExpense handles adding an expense.
// @Summary     Add an expense
// @Description Record a new expense for the authenticated user
// @Tags        expenses
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /add [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditCreateExpense, "expense", expense.ID, c.ClientIP(), expenseChanges(in))

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses handles listing expenses a page at a time.
// @Summary     List expenses
// @Description Paginated expenses of the authenticated user, newest first
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.expenseService.ListExpensesPage(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// EditForm returns an expense for editing.
// @Summary     Edit form
// @Description Get an expense owned by the user together with the category choices
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Expense ID"
// @Success     200 {object} EditFormResponse "Expense and choices"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Expense belongs to another user"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /edit/{id} [get]
func (h *ExpenseHandler) EditForm(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpense(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, EditFormResponse{Expense: expense, Categories: models.Categories})
}

// UpdateExpense handles editing an expense.
// @Summary     Update expense
// @Description Replace the amount, category, description and optionally the date of an expense
// @Tags        expenses
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int            true "Expense ID"
// @Param       request body ExpenseRequest true "Updated expense"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Expense belongs to another user"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Update failed"
// @Router      /edit/{id} [post]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), userID, expenseID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditUpdateExpense, "expense", expenseID, c.ClientIP(), expenseChanges(in))

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles deleting an expense.
// @Summary     Delete expense
// @Description Permanently delete an expense owned by the user
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Expense ID"
// @Success     200 {object} MessageResponse "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Expense belongs to another user"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /delete/{id} [post]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), userID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditDeleteExpense, "expense", expenseID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Expense deleted successfully"})
}
