package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetly/internal/errors"
	"budgetly/internal/logger"
	"budgetly/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func testUser() *models.User {
	u := &models.User{Email: "ada@example.com", Name: "Ada"}
	u.ID = "0191b5e4-7c2a-7000-8000-000000000001"
	return u
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got: %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

func TestTokenManager(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		m := NewTokenManager("secret", time.Hour)
		token, expiresAt, err := m.GenerateToken(testUser())
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if time.Until(expiresAt) <= 0 {
			t.Errorf("expected future expiry, got %v", expiresAt)
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			t.Fatalf("ParseToken: %v", err)
		}
		if claims.UserID != testUser().ID || claims.Email != "ada@example.com" {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("wrong_secret", func(t *testing.T) {
		token, _, _ := NewTokenManager("secret", time.Hour).GenerateToken(testUser())
		if _, err := NewTokenManager("other", time.Hour).ParseToken(token); err == nil {
			t.Error("expected error for token signed with another secret")
		}
	})

	t.Run("expired", func(t *testing.T) {
		m := NewTokenManager("secret", time.Minute)
		issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return issued }
		token, _, _ := m.GenerateToken(testUser())

		m.now = func() time.Time { return issued.Add(2 * time.Minute) }
		if _, err := m.ParseToken(token); err == nil {
			t.Error("expected error for expired token")
		}
	})

	t.Run("default_ttl", func(t *testing.T) {
		if m := NewTokenManager("secret", 0); m.ttl != 24*time.Hour {
			t.Errorf("expected 24h default ttl, got %v", m.ttl)
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	r := gin.New()
	r.GET("/me", m.AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey)})
	})

	valid, _, _ := m.GenerateToken(testUser())

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + valid, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				if got := parseBody(t, rec)["user_id"]; got != testUser().ID {
					t.Errorf("expected user id %q in context, got %v", testUser().ID, got)
				}
				return
			}
			if code := errorCode(t, rec); code != "UNAUTHORIZED" {
				t.Errorf("expected UNAUTHORIZED, got %q", code)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.WithDetails(apperrors.ErrOverspendRejected, "over", map[string]any{"overage": "50.00"}))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	t.Run("app_error_keeps_status_and_details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", nil))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		errObj := parseBody(t, rec)["error"].(map[string]interface{})
		if errObj["code"] != "OVERSPEND_REJECTED" {
			t.Errorf("unexpected code %v", errObj["code"])
		}
		details := errObj["details"].(map[string]interface{})
		if details["overage"] != "50.00" {
			t.Errorf("expected overage 50.00, got %v", details["overage"])
		}
	})

	t.Run("unknown_error_is_internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "INTERNAL_ERROR" {
			t.Errorf("expected INTERNAL_ERROR, got %q", code)
		}
	})
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	t.Run("generates_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := rec.Header().Get("X-Request-ID")
		if id == "" {
			t.Fatal("expected X-Request-ID header")
		}
		if rec.Body.String() != id {
			t.Errorf("context id %q does not match header %q", rec.Body.String(), id)
		}
	})

	t.Run("reuses_incoming_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "trace-123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "trace-123" {
			t.Errorf("expected trace-123, got %q", got)
		}
	})
}

func TestCORS(t *testing.T) {
	newRouter := func(origins []string) *gin.Engine {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("wildcard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter([]string{"*"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected *, got %q", got)
		}
	})

	t.Run("listed_origin_is_echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		newRouter([]string{"https://app.example.com"}).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("expected origin echoed, got %q", got)
		}
	})

	t.Run("unlisted_origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		newRouter([]string{"https://app.example.com"}).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no allow-origin header, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter([]string{"*"}).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/ping", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})
}
