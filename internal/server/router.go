// Package server assembles the HTTP router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"budgetly/internal/handlers"
	"budgetly/internal/logger"
	"budgetly/internal/middleware"

	_ "budgetly/internal/docs" // Import swagger docs
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router needs.
type Deps struct {
	Auth        *handlers.AuthHandler
	Budgets     *handlers.BudgetHandler
	Expenses    *handlers.ExpenseHandler
	Tokens      *middleware.TokenManager
	CORSOrigins []string
	DB          Pinger
}

// NewRouter builds the Gin engine with every API route registered.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(d.CORSOrigins))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", health(d.DB))

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(d.Tokens.AuthMiddleware())

	protected.GET("/profile", d.Auth.GetProfile)

	budgets := protected.Group("/budgets")
	budgets.POST("", d.Budgets.CreateBudget)
	budgets.GET("", d.Budgets.GetBudgets)
	budgets.GET("/current", d.Budgets.GetCurrentBudget)
	budgets.GET("/:id", d.Budgets.GetBudget)
	budgets.PUT("/:id", d.Budgets.UpdateBudget)
	budgets.DELETE("/:id", d.Budgets.DeleteBudget)
	budgets.GET("/:id/adjustments", d.Budgets.GetAdjustments)
	budgets.GET("/:id/validate", d.Budgets.ValidateBudget)
	budgets.POST("/:id/recalculate", d.Budgets.RecalculateSpent)
	budgets.POST("/:id/expenses", d.Budgets.ApplyAmount)

	expenses := protected.Group("/expenses")
	expenses.POST("", d.Expenses.CreateExpense)
	expenses.GET("", d.Expenses.GetExpenses)
	expenses.GET("/budget/:budgetId", d.Expenses.GetBudgetExpenses)
	expenses.GET("/category/:category", d.Expenses.GetExpensesByCategory)
	expenses.GET("/search", d.Expenses.SearchExpenses)
	expenses.GET("/summary", d.Expenses.GetSummary)
	expenses.GET("/:id", d.Expenses.GetExpense)
	expenses.PUT("/:id", d.Expenses.UpdateExpense)
	expenses.DELETE("/:id", d.Expenses.DeleteExpense)

	return router
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Named("health").Warnw("database ping failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
