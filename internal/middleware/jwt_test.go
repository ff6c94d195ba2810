package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agrolink/farm-marketplace/internal/auth"
	"github.com/agrolink/farm-marketplace/internal/cookie"
	"github.com/agrolink/farm-marketplace/internal/model"
)

const testSecret = "middleware-test-secret"

func protectedEcho(secret string, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	mws := append([]echo.MiddlewareFunc{SessionAuth(secret)}, extra...)
	e.GET("/v1/listings", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": UserID(c),
			"role":    ActiveRole(c),
		})
	}, mws...)
	return e
}

func doGet(e *echo.Echo, decorate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/listings", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSessionAuthNoToken(t *testing.T) {
	rec := doGet(protectedEcho(testSecret), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthInvalidToken(t *testing.T) {
	rec := doGet(protectedEcho(testSecret), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookie.AccessName, Value: "garbage"})
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "refresh") {
		t.Fatalf("invalid token should not hint at refresh: %s", rec.Body.String())
	}
}

func TestSessionAuthExpiredTokenHintsRefresh(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	tok, err := auth.NewAccessToken(testSecret, 5, model.RoleFarmer, time.Minute, past)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := doGet(protectedEcho(testSecret), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookie.AccessName, Value: tok.Token})
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "try refresh") {
		t.Fatalf("expired session should hint refresh: %s", rec.Body.String())
	}
}

func TestSessionAuthValidCookie(t *testing.T) {
	tok, err := auth.NewAccessToken(testSecret, 9, model.RoleBuyer, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := doGet(protectedEcho(testSecret), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookie.AccessName, Value: tok.Token})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"user_id":9`) || !strings.Contains(rec.Body.String(), `"role":"BUYER"`) {
		t.Fatalf("context not populated: %s", rec.Body.String())
	}
}

func TestSessionAuthBearerFallback(t *testing.T) {
	tok, err := auth.NewAccessToken(testSecret, 3, model.RoleAdmin, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := doGet(protectedEcho(testSecret), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok.Token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer transport rejected: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	e := protectedEcho(testSecret, RequireRole(model.RoleBuyer))

	farmer, _ := auth.NewAccessToken(testSecret, 1, model.RoleFarmer, time.Hour, time.Now())
	rec := doGet(e, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookie.AccessName, Value: farmer.Token})
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("farmer on buyer-only route: expected 403, got %d", rec.Code)
	}

	buyer, _ := auth.NewAccessToken(testSecret, 1, model.RoleBuyer, time.Hour, time.Now())
	rec = doGet(e, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: cookie.AccessName, Value: buyer.Token})
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("buyer rejected from buyer route: %d", rec.Code)
	}
}
