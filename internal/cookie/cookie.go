// Package cookie binds session tokens to browser cookies. The UI never
// reads tokens from script; it relies entirely on a still-valid session,
// so both cookies are HttpOnly. SameSite is Lax so top-level navigations
// (email verification links) still carry the session.
package cookie

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names. The refresh cookie is path-scoped to the auth group so
// it is only ever sent to /v1/auth/refresh and logout, never to ordinary
// protected endpoints.
const (
	AccessName  = "fm_access"
	RefreshName = "fm_refresh"

	accessPath  = "/"
	refreshPath = "/v1/auth"
)

// Manager writes and clears the session cookie pair. Secure is set from
// config so local plain-http development still works; in production it
// must be on.
type Manager struct {
	Secure bool
	Domain string
}

func NewManager(secure bool, domain string) *Manager {
	return &Manager{Secure: secure, Domain: domain}
}

// AttachAccess sets the access cookie alone, used by refresh and
// role-switch where the refresh cookie must not be touched.
func (m *Manager) AttachAccess(c echo.Context, token string, exp time.Time) {
	c.SetCookie(m.build(AccessName, token, accessPath, exp))
}

// Attach sets both session cookies after login or verification.
func (m *Manager) Attach(c echo.Context, accessToken string, accessExp time.Time, refreshToken string, refreshExp time.Time) {
	m.AttachAccess(c, accessToken, accessExp)
	c.SetCookie(m.build(RefreshName, refreshToken, refreshPath, refreshExp))
}

// Clear expires both cookies immediately (logout).
func (m *Manager) Clear(c echo.Context) {
	expired := time.Unix(0, 0).UTC()
	c.SetCookie(m.build(AccessName, "", accessPath, expired))
	c.SetCookie(m.build(RefreshName, "", refreshPath, expired))
}

// ReadAccess returns the access token carried by the request, or "".
func ReadAccess(c echo.Context) string {
	return read(c, AccessName)
}

// ReadRefresh returns the refresh token carried by the request, or "".
func ReadRefresh(c echo.Context) string {
	return read(c, RefreshName)
}

func read(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (m *Manager) build(name, value, path string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   m.Domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	return ck
}
