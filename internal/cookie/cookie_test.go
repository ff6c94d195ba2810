package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newCtx(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestAttachSetsSecurityAttributes(t *testing.T) {
	c, rec := newCtx(t)
	m := NewManager(true, "")
	exp := time.Now().Add(time.Hour).UTC()
	m.Attach(c, "access-jwt", exp, "refresh-raw", exp.Add(24*time.Hour))

	access := cookieByName(t, rec, AccessName)
	if access.Value != "access-jwt" {
		t.Fatalf("access value = %q", access.Value)
	}
	if !access.HttpOnly || !access.Secure || access.SameSite != http.SameSiteLaxMode {
		t.Fatalf("access cookie missing security attributes: %+v", access)
	}
	if access.Path != "/" {
		t.Fatalf("access path = %q", access.Path)
	}

	refresh := cookieByName(t, rec, RefreshName)
	if !refresh.HttpOnly || !refresh.Secure {
		t.Fatalf("refresh cookie missing security attributes: %+v", refresh)
	}
	if refresh.Path != "/v1/auth" {
		t.Fatalf("refresh cookie not path-scoped: %q", refresh.Path)
	}
}

func TestAttachInsecureTransport(t *testing.T) {
	c, rec := newCtx(t)
	m := NewManager(false, "")
	m.AttachAccess(c, "tok", time.Now().Add(time.Hour))
	if cookieByName(t, rec, AccessName).Secure {
		t.Fatal("Secure set despite plain transport config")
	}
}

func TestClearExpiresBoth(t *testing.T) {
	c, rec := newCtx(t)
	m := NewManager(true, "")
	m.Clear(c)

	for _, name := range []string{AccessName, RefreshName} {
		ck := cookieByName(t, rec, name)
		if ck.Value != "" {
			t.Fatalf("%s not emptied", name)
		}
		if ck.MaxAge != -1 {
			t.Fatalf("%s MaxAge = %d, want -1", name, ck.MaxAge)
		}
	}
}

func TestReadHelpers(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: AccessName, Value: "a"})
	req.AddCookie(&http.Cookie{Name: RefreshName, Value: "r"})
	c := e.NewContext(req, httptest.NewRecorder())

	if ReadAccess(c) != "a" || ReadRefresh(c) != "r" {
		t.Fatalf("read helpers: access=%q refresh=%q", ReadAccess(c), ReadRefresh(c))
	}

	empty := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if ReadAccess(empty) != "" {
		t.Fatal("missing cookie should read as empty")
	}
}
