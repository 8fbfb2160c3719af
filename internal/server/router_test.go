package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"budgetly/internal/handlers"
	"budgetly/internal/logger"
	"budgetly/internal/middleware"
	"budgetly/internal/notify"
	"budgetly/internal/repository"
	"budgetly/internal/services"
	"budgetly/internal/testutil"
	"budgetly/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testApp struct {
	router *gin.Engine
}

// setupApp wires the full stack over an isolated in-memory SQLite database.
func setupApp(t *testing.T, db Pinger) *testApp {
	t.Helper()

	store := repository.NewGormStore(testutil.SetupTestDB(t))
	budgetService := services.NewBudgetService(store, notify.NewLogNotifier(logger.Named("alerts")))
	expenseService := services.NewExpenseService(store, budgetService, services.WithReconciliation(true))
	userService := services.NewUserService(store)
	tokens := middleware.NewTokenManager("test-secret", time.Hour)

	router := NewRouter(Deps{
		Auth:        handlers.NewAuthHandler(userService, tokens),
		Budgets:     handlers.NewBudgetHandler(budgetService, expenseService),
		Expenses:    handlers.NewExpenseHandler(expenseService),
		Tokens:      tokens,
		CORSOrigins: []string{"*"},
		DB:          db,
	})
	return &testApp{router: router}
}

func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func (app *testApp) registerUser(t *testing.T, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","name":"Test User"}`, email)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["token"].(string)
}

func (app *testApp) createBudget(t *testing.T, token string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/budgets",
		`{"total_income":"2000","leisure_budget":"300","essentials_budget":"1200","savings_budget":"500"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rec := setupApp(t, fakePinger{}).request("GET", "/api/health", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("expected request id header")
		}
	})

	t.Run("database_down", func(t *testing.T) {
		rec := setupApp(t, fakePinger{err: errors.New("refused")}).request("GET", "/api/health", "", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(t, fakePinger{})

	token := app.registerUser(t, "ada@example.com")

	t.Run("profile_with_token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["email"] != "ada@example.com" {
			t.Errorf("unexpected user %v", user)
		}
	})

	t.Run("profile_without_token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("duplicate_registration", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/register",
			`{"email":"ADA@example.com","password":"password123"}`, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("login", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/login", `{"email":"ada@example.com","password":"password123"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("login_wrong_password", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/login", `{"email":"ada@example.com","password":"nope-nope"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestBudgetAndExpenseFlow(t *testing.T) {
	app := setupApp(t, fakePinger{})
	token := app.registerUser(t, "flow@example.com")
	budgetID := app.createBudget(t, token)

	t.Run("second_budget_same_month_conflicts", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/budgets",
			`{"total_income":"2000","leisure_budget":"300","essentials_budget":"1200","savings_budget":"500"}`, token)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "DUPLICATE_BUDGET" {
			t.Errorf("expected DUPLICATE_BUDGET, got %s", code)
		}
	})

	var expenseID string
	t.Run("expense_applies_to_budget", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/expenses", fmt.Sprintf(
			`{"budget_id":%q,"category":"leisure","amount":"250","description":"Concert tickets","payment_method":"card"}`, budgetID), token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		expenseID = parseJSON(t, rec)["expense"].(map[string]interface{})["id"].(string)

		rec = app.request("GET", "/api/v1/budgets/current", "", token)
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["leisure_spent"] != "250" {
			t.Errorf("expected leisure_spent 250, got %v", budget["leisure_spent"])
		}
	})

	t.Run("overspend_is_rejected", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/expenses", fmt.Sprintf(
			`{"budget_id":%q,"category":"leisure","amount":"100","description":"Dinner out"}`, budgetID), token)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		details := parseJSON(t, rec)["error"].(map[string]interface{})["details"].(map[string]interface{})
		if details["overage"] != "50.00" {
			t.Errorf("expected overage 50.00, got %v", details["overage"])
		}
	})

	t.Run("short_description_fails_validation", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/expenses", fmt.Sprintf(
			`{"budget_id":%q,"category":"essentials","amount":"5","description":"ab"}`, budgetID), token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %s", code)
		}
	})

	t.Run("listing_and_summary", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/expenses?category=leisure", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if total := parseJSON(t, rec)["total_items"].(float64); total != 1 {
			t.Errorf("expected 1 expense, got %v", total)
		}

		rec = app.request("GET", "/api/v1/expenses/search?q=concert", "", token)
		if total := parseJSON(t, rec)["total_items"].(float64); total != 1 {
			t.Errorf("expected search hit, got %v", total)
		}

		rec = app.request("GET", "/api/v1/expenses/summary", "", token)
		summary := parseJSON(t, rec)["summary"].(map[string]interface{})
		if summary["total"] != "250" || summary["count"].(float64) != 1 {
			t.Errorf("unexpected summary %v", summary)
		}
	})

	t.Run("update_reconciles_spent", func(t *testing.T) {
		rec := app.request("PUT", "/api/v1/expenses/"+expenseID, `{"amount":"200"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["leisure_spent"] != "200" {
			t.Errorf("expected leisure_spent 200, got %v", budget["leisure_spent"])
		}
	})

	t.Run("other_user_sees_not_found", func(t *testing.T) {
		other := app.registerUser(t, "other@example.com")
		rec := app.request("GET", "/api/v1/budgets/"+budgetID, "", other)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		rec = app.request("GET", "/api/v1/expenses/"+expenseID, "", other)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("sub_cent_amount_fails_validation", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/expenses", fmt.Sprintf(
			`{"budget_id":%q,"category":"essentials","amount":"0.004","description":"Rounding error"}`, budgetID), token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %s", code)
		}
	})

	t.Run("category_case_is_normalized", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/expenses", fmt.Sprintf(
			`{"budget_id":%q,"category":"Essentials","amount":"12.40","description":"Groceries"}`, budgetID), token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if category := parseJSON(t, rec)["expense"].(map[string]interface{})["category"]; category != "essentials" {
			t.Errorf("expected stored category essentials, got %v", category)
		}
	})

	t.Run("direct_amount_allows_overspend", func(t *testing.T) {
		other := app.registerUser(t, "direct@example.com")
		rec := app.request("POST", "/api/v1/budgets/"+budgetID+"/expenses", `{"category":"savings","amount":"10"}`, other)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for another user, got %d", rec.Code)
		}

		rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/expenses", `{"category":"Savings","amount":"600"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["savings_spent"] != "600" {
			t.Errorf("expected savings_spent 600, got %v", budget["savings_spent"])
		}
		savings := budget["categories"].(map[string]interface{})["savings"].(map[string]interface{})
		if savings["is_over_budget"] != true {
			t.Errorf("expected savings over budget, got %v", savings["is_over_budget"])
		}
	})

	t.Run("delete_budget_removes_expenses", func(t *testing.T) {
		rec := app.request("DELETE", "/api/v1/budgets/"+budgetID, "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = app.request("GET", "/api/v1/expenses/"+expenseID, "", token)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after cascade, got %d", rec.Code)
		}

		rec = app.request("GET", "/api/v1/budgets/current", "", token)
		if code := errorCode(t, rec); code != "NO_ACTIVE_BUDGET" {
			t.Errorf("expected NO_ACTIVE_BUDGET, got %s", code)
		}
	})
}
