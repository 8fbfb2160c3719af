package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "budgetly/internal/errors"
	"budgetly/internal/models"
	"budgetly/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// CreateExpenseRequest represents the request payload for recording an expense.
type CreateExpenseRequest struct {
	BudgetID      string           `json:"budget_id" binding:"required,uuid"`
	Category      string           `json:"category" binding:"required,expense_category"`
	Amount        *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"42.50"`
	Description   string           `json:"description" binding:"required,max=255"`
	PaymentMethod string           `json:"payment_method" binding:"omitempty,payment_method"`
	Location      string           `json:"location" binding:"max=255"`
	Notes         string           `json:"notes" binding:"max=2000"`
	ExpenseDate   *time.Time       `json:"expense_date"`
}

// UpdateExpenseRequest represents the request payload for editing an expense.
// Omitted fields are left unchanged.
type UpdateExpenseRequest struct {
	Category      *string          `json:"category" binding:"omitempty,expense_category"`
	Amount        *decimal.Decimal `json:"amount" swaggertype:"string"`
	Description   *string          `json:"description" binding:"omitempty,max=255"`
	PaymentMethod *string          `json:"payment_method" binding:"omitempty,payment_method"`
	Location      *string          `json:"location" binding:"omitempty,max=255"`
	Notes         *string          `json:"notes" binding:"omitempty,max=2000"`
	ExpenseDate   *time.Time       `json:"expense_date"`
}

func (r UpdateExpenseRequest) toUpdate() (models.ExpenseUpdate, error) {
	update := models.ExpenseUpdate{
		Amount:        r.Amount,
		Description:   r.Description,
		PaymentMethod: r.PaymentMethod,
		Location:      r.Location,
		Notes:         r.Notes,
		ExpenseDate:   r.ExpenseDate,
	}
	if r.Category != nil {
		c, err := models.ParseCategory(*r.Category)
		if err != nil {
			return models.ExpenseUpdate{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		update.Category = &c
	}
	return update, nil
}

// CreateExpense records an expense and applies it to the current budget.
// @Summary     Create an expense
// @Description Record an expense against the current month's budget; rejected when it would overspend the category
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No budget for the current month"
// @Failure     409 {object} ErrorResponse "Budget mismatch or concurrent update"
// @Failure     422 {object} ErrorResponse "Expense would exceed the category budget"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), services.ExpenseInput{
		UserID:        userID,
		BudgetID:      req.BudgetID,
		Category:      category,
		Amount:        *req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Location:      req.Location,
		Notes:         req.Notes,
		ExpenseDate:   req.ExpenseDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses lists the authenticated user's expenses.
// @Summary     Get expenses
// @Description Get a paginated list of expenses, newest first, with optional filters
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       budget_id query string false "Filter by budget"
// @Param       category  query string false "Filter by category (leisure/essentials/savings)"
// @Param       q         query string false "Case-insensitive description search"
// @Param       from      query string false "Earliest expense date (YYYY-MM-DD or RFC 3339)"
// @Param       to        query string false "Latest expense date (YYYY-MM-DD or RFC 3339)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
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

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	query := services.ExpenseQuery{
		BudgetID: strings.TrimSpace(c.Query("budget_id")),
		Search:   strings.TrimSpace(c.Query("q")),
	}
	if raw := c.Query("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		query.Category = category
	}
	if query.From, err = parseDateParam(c, "from", false); err != nil {
		respondWithError(c, err)
		return
	}
	if query.To, err = parseDateParam(c, "to", true); err != nil {
		respondWithError(c, err)
		return
	}
	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must not be after to"))
		return
	}

	result, err := h.expenseService.GetUserExpenses(c.Request.Context(), userID, query, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudgetExpenses lists the expenses recorded against one budget.
// @Summary     Get budget expenses
// @Description Get a paginated list of the expenses recorded against a budget
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       budgetId  path  string true  "Budget ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/budget/{budgetId} [get]
func (h *ExpenseHandler) GetBudgetExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "budgetId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.GetBudgetExpenses(c.Request.Context(), userID, budgetID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExpensesByCategory lists the user's expenses in one category.
// @Summary     Get expenses by category
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       category  path  string true  "Category (leisure/essentials/savings)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/category/{category} [get]
func (h *ExpenseHandler) GetExpensesByCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.GetExpensesByCategory(c.Request.Context(), userID, category, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchExpenses finds expenses whose description contains q.
// @Summary     Search expenses
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       q         query string true  "Search term"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Missing search term"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/search [get]
func (h *ExpenseHandler) SearchExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Query parameter q is required"))
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.SearchExpenses(c.Request.Context(), userID, q, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSummary aggregates the user's expenses per category.
// @Summary     Expense summary
// @Description Totals per category, overall total, count and average amount
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ExpenseSummary "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/summary [get]
func (h *ExpenseHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.expenseService.GetSummary(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetExpense returns a single expense.
// @Summary     Get expense by ID
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense details"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
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

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpense edits an expense.
// @Summary     Update expense
// @Description Edit an expense; budget spent totals follow only when reconciliation is enabled
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Fields to change"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input or expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     409 {object} ErrorResponse "Concurrent update"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [put]
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

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), userID, expenseID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense removes an expense.
// @Summary     Delete expense
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} map[string]string "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
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

	deleted, err := h.expenseService.DeleteExpense(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !deleted {
		respondWithError(c, apperrors.ErrExpenseNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
