package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "budgetly/internal/errors"
	"budgetly/internal/models"
	"budgetly/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService  services.BudgetServicer
	expenseService services.ExpenseServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, expenseService services.ExpenseServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, expenseService: expenseService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// Amounts are decimal strings or JSON numbers.
type CreateBudgetRequest struct {
	TotalIncome      *decimal.Decimal `json:"total_income" binding:"required" swaggertype:"string" example:"3000.00"`
	LeisureBudget    *decimal.Decimal `json:"leisure_budget" binding:"required" swaggertype:"string" example:"500.00"`
	EssentialsBudget *decimal.Decimal `json:"essentials_budget" binding:"required" swaggertype:"string" example:"1500.00"`
	SavingsBudget    *decimal.Decimal `json:"savings_budget" binding:"required" swaggertype:"string" example:"1000.00"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
// Omitted fields are left unchanged.
type UpdateBudgetRequest struct {
	TotalIncome      *decimal.Decimal `json:"total_income" swaggertype:"string"`
	LeisureBudget    *decimal.Decimal `json:"leisure_budget" swaggertype:"string"`
	EssentialsBudget *decimal.Decimal `json:"essentials_budget" swaggertype:"string"`
	SavingsBudget    *decimal.Decimal `json:"savings_budget" swaggertype:"string"`
}

// ApplyAmountRequest represents spending applied straight to a budget category.
type ApplyAmountRequest struct {
	Category string           `json:"category" binding:"required,expense_category" example:"leisure"`
	Amount   *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"42.50"`
}

func (r UpdateBudgetRequest) empty() bool {
	return r.TotalIncome == nil && r.LeisureBudget == nil && r.EssentialsBudget == nil && r.SavingsBudget == nil
}

// CreateBudget handles the creation of the current month's budget.
// @Summary     Create a budget
// @Description Create the budget for the current month
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget allocation"
// @Success     201 {object} models.BudgetView "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "A budget already exists for this month"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), userID,
		*req.TotalIncome, *req.LeisureBudget, *req.EssentialsBudget, *req.SavingsBudget)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets handles listing budgets for the authenticated user.
// @Summary     Get budgets
// @Description Get the authenticated user's budget history, newest month first
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.BudgetView] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
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

	result, err := h.budgetService.GetUserBudgets(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCurrentBudget returns the budget for the current month.
// @Summary     Get current budget
// @Description Get the authenticated user's budget for the current month
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.BudgetView "Current budget"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No budget for the current month"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/current [get]
func (h *BudgetHandler) GetCurrentBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetCurrentBudget(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetBudget handles retrieving a specific budget.
// @Summary     Get budget by ID
// @Description Get a specific budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.BudgetView "Budget details"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	budget, err := h.budgetService.GetBudgetByID(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating a budget's allocation.
// @Summary     Update budget
// @Description Update income or category allocations; spent totals are not updatable
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to change"
// @Success     200 {object} models.BudgetView "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input or budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Concurrent update"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.empty() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "At least one field must be provided"))
		return
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), userID, budgetID, services.BudgetUpdate{
		TotalIncome:      req.TotalIncome,
		LeisureBudget:    req.LeisureBudget,
		EssentialsBudget: req.EssentialsBudget,
		SavingsBudget:    req.SavingsBudget,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget handles deleting a budget together with its expenses.
// @Summary     Delete budget
// @Description Delete a budget and every expense recorded against it
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} map[string]string "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	deleted, err := h.budgetService.DeleteBudget(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !deleted {
		respondWithError(c, apperrors.ErrBudgetNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted successfully"})
}

// GetAdjustments returns the auto-adjustment suggestion for a budget.
// @Summary     Budget adjustments
// @Description Suggest a reallocation when planned spending exceeds income or leaves savings too low
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.AdjustmentSuggestion "Suggestion"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/adjustments [get]
func (h *BudgetHandler) GetAdjustments(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	suggestion, err := h.budgetService.GetAdjustments(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"adjustment": suggestion})
}

// ValidateBudget reports whether a stored budget satisfies every rule.
// @Summary     Validate budget
// @Description Validate a budget and attach an adjustment when it is over income
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.BudgetValidation "Verdict"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/validate [get]
func (h *BudgetHandler) ValidateBudget(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	verdict, err := h.budgetService.ValidateBudget(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}

// RecalculateSpent rebuilds a budget's spent totals from its expenses.
// @Summary     Recalculate spent totals
// @Description Recompute each category's spent total from the budget's recorded expenses
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.BudgetView "Recalculated budget"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Concurrent update"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/recalculate [post]
func (h *BudgetHandler) RecalculateSpent(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	budget, err := h.expenseService.RecalculateSpent(c.Request.Context(), userID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// ApplyAmount adds spending to one category of a budget without recording
// an expense. Overspend is accepted and shows up as is_over_budget.
// @Summary     Apply an amount to a budget
// @Description Increase a category's spent total directly; the budget is not capped
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Budget ID"
// @Param       request body ApplyAmountRequest true "Category and amount"
// @Success     200 {object} models.BudgetView "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Concurrent update"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/expenses [post]
func (h *BudgetHandler) ApplyAmount(c *gin.Context) {
	userID, budgetID, ok := h.ownedBudgetParams(c)
	if !ok {
		return
	}

	var req ApplyAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.budgetService.GetBudgetByID(ctx, userID, budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.AddExpenseAmount(ctx, budgetID, category, *req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// ownedBudgetParams resolves the caller and the :id path parameter,
// writing the error response itself when either is missing.
func (h *BudgetHandler) ownedBudgetParams(c *gin.Context) (userID, budgetID string, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}

	budgetID, err = parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	return userID, budgetID, true
}
