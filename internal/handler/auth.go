package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agrolink/farm-marketplace/internal/auth"
	"github.com/agrolink/farm-marketplace/internal/config"
	"github.com/agrolink/farm-marketplace/internal/cookie"
	"github.com/agrolink/farm-marketplace/internal/middleware"
	"github.com/agrolink/farm-marketplace/internal/model"
	"github.com/agrolink/farm-marketplace/internal/queue"
	"github.com/agrolink/farm-marketplace/internal/repository"
)

// UserStore is the credential-store surface the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, identifier, password string, roles model.RoleSet, cost int) (uint64, error)
	FindByIdentifier(ctx context.Context, identifier string) (model.User, error)
	FindByID(ctx context.Context, id uint64) (model.User, error)
	UpdateLastActiveRole(ctx context.Context, userID uint64, role model.Role) error
	SetStatus(ctx context.Context, userID uint64, status string) error
	UpdatePasswordHash(ctx context.Context, userID uint64, hash string) error
}

// RefreshStore persists hashed refresh tokens.
type RefreshStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// VerificationStore holds single-use verification tokens and OTPs.
type VerificationStore interface {
	Put(ctx context.Context, v model.Verification) error
	Consume(ctx context.Context, purpose, identifier, secretHash string, now time.Time) (uint64, error)
	Invalidate(ctx context.Context, purpose, identifier string) error
}

// NotificationPublisher delivers outbound identity notifications.
type NotificationPublisher func(ctx context.Context, event queue.NotificationEvent) error

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg           config.Config
	Users         UserStore
	Tokens        RefreshStore
	Verifications VerificationStore
	Cookies       *cookie.Manager
	Publish       NotificationPublisher
	Now           func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, t RefreshStore, v VerificationStore, ck *cookie.Manager, pub NotificationPublisher) *AuthHandler {
	return &AuthHandler{
		Cfg: cfg, Users: u, Tokens: t, Verifications: v,
		Cookies: ck, Publish: pub, Now: func() time.Time { return time.Now().UTC() },
	}
}

// ----- DTOs -----

type registerReq struct {
	Identifier string   `json:"identifier"`
	Password   string   `json:"password"`
	Roles      []string `json:"roles"`
}
type verifyReq struct {
	Identifier string `json:"identifier"`
	Token      string `json:"token"`
	OTP        string `json:"otp"`
}
type identifierReq struct {
	Identifier string `json:"identifier"`
}
type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}
type switchRoleReq struct {
	Role string `json:"role"`
}
type resetConfirmReq struct {
	Identifier  string `json:"identifier"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userPart struct {
	ID         uint64       `json:"id"`
	Identifier string       `json:"identifier"`
	Role       model.Role   `json:"role"`
	Roles      []model.Role `json:"roles"`
}
type sessionResp struct {
	User      userPart  `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// dummyHash is compared against on unknown identifiers so a login miss
// costs the same bcrypt work as a password mismatch.
var dummyHash, _ = auth.HashPassword("farm-marketplace-dummy", 10)

// Register creates a pending account and dispatches its verification
// secret. No session is issued until the account is verified.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = repository.NormalizeIdentifier(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier/password required"})
	}
	roles, err := model.ParseRoleSet(strings.Join(req.Roles, ","))
	if err != nil {
		// Default to the common case, matching the sign-up form.
		if len(req.Roles) > 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role requested"})
		}
		roles = model.RoleSet{model.RoleFarmer}
	}
	if roles.Contains(model.RoleAdmin) {
		// Admin accounts are provisioned out of band, never self-registered.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role requested"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Identifier, req.Password, roles, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentifier) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "identifier already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	channel, err := h.issueVerification(ctx, uid, req.Identifier)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send verification failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user_id":      uid,
		"status":       "pending",
		"verification": channel,
	})
}

// Verify consumes a verification token or OTP, activates the account and
// logs the user in immediately.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = repository.NormalizeIdentifier(req.Identifier)
	secret := strings.TrimSpace(req.Token)
	purpose := model.PurposeEmailVerify
	if repository.IsPhoneIdentifier(req.Identifier) {
		secret = strings.TrimSpace(req.OTP)
		purpose = model.PurposePhoneOTP
	}
	if req.Identifier == "" || secret == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier and token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Verifications.Consume(ctx, purpose, req.Identifier, auth.HashSecret(secret), h.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "verification expired"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	if err := h.Users.SetStatus(ctx, uid, model.StatusActive); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verification"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}

	u, err := h.Users.FindByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.openSession(c, ctx, u)
}

// Resend invalidates any outstanding verification secret and issues a
// fresh one. The response does not reveal whether the identifier exists.
func (h *AuthHandler) Resend(c echo.Context) error {
	var req identifierReq
	if err := c.Bind(&req); err != nil || repository.NormalizeIdentifier(req.Identifier) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier required"})
	}
	identifier := repository.NormalizeIdentifier(req.Identifier)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByIdentifier(ctx, identifier)
	if err == nil && u.Status == model.StatusPending {
		purpose := model.PurposeEmailVerify
		if repository.IsPhoneIdentifier(identifier) {
			purpose = model.PurposePhoneOTP
		}
		if err := h.Verifications.Invalidate(ctx, purpose, identifier); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
		}
		if _, err := h.issueVerification(ctx, u.ID, identifier); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
		}
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

// Login verifies credentials and opens a session. Wrong identifier and
// wrong password are indistinguishable to the client; pending and
// suspended accounts are refused even with the right password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = repository.NormalizeIdentifier(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.VerifyPassword(dummyHash, req.Password) // level the timing
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	switch u.Status {
	case model.StatusPending:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account pending verification"})
	case model.StatusSuspended:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
	}

	return h.openSession(c, ctx, u)
}

// Refresh exchanges a still-valid refresh token for a new access token,
// rotating the refresh token in the process. It reads the refresh cookie;
// non-browser clients may send {"refresh_token": ...} instead.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := cookie.ReadRefresh(c)
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.Bind(&body)
		raw = strings.TrimSpace(body.RefreshToken)
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	hash := auth.HashSecret(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	u, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if u.Status != model.StatusActive {
		// A suspended account keeps its refresh token but cannot use it.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	_ = h.Tokens.RevokeByHash(ctx, hash)
	return h.openSession(c, ctx, u)
}

// SwitchRole re-mints the access token under another granted role. It
// runs behind SessionAuth, so an expired access token can never
// authorize a switch; the refresh token plays no part here at all.
func (h *AuthHandler) SwitchRole(c echo.Context) error {
	var req switchRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	requested, err := model.ParseRole(req.Role)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.Roles.Contains(requested) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "unauthorized to switch to role " + string(requested)})
	}
	if err := h.Users.UpdateLastActiveRole(ctx, uid, requested); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "switch failed"})
	}

	access, err := auth.NewAccessToken(h.Cfg.JWTSecret, uid, requested, h.Cfg.AccessTTL, h.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	h.Cookies.AttachAccess(c, access.Token, access.Exp)

	return c.JSON(http.StatusOK, echo.Map{
		"role":     requested,
		"redirect": "/dashboard/" + strings.ToLower(string(requested)),
	})
}

// Logout clears the session cookies and revokes refresh tokens: all of
// the user's tokens when the request carries a valid access token,
// otherwise just the one in the refresh cookie. Always 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw := middleware.AccessTokenFromRequest(c); raw != "" {
		if uid, _, res := auth.VerifyAccessToken(h.Cfg.JWTSecret, raw, h.Now()); res == auth.VerifyOK {
			if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
				c.Logger().Errorf("logout: revoke all for user %d: %v", uid, err)
			}
			h.Cookies.Clear(c)
			return c.JSON(http.StatusOK, echo.Map{"status": "logged out"})
		}
	}
	if raw := cookie.ReadRefresh(c); raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, auth.HashSecret(raw)); err != nil {
			c.Logger().Errorf("logout: revoke refresh: %v", err)
		}
	}
	h.Cookies.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "logged out"})
}

// PasswordResetRequest issues a single-use reset token for active
// accounts. The response is 202 regardless, to avoid enumeration.
func (h *AuthHandler) PasswordResetRequest(c echo.Context) error {
	var req identifierReq
	if err := c.Bind(&req); err != nil || repository.NormalizeIdentifier(req.Identifier) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier required"})
	}
	identifier := repository.NormalizeIdentifier(req.Identifier)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByIdentifier(ctx, identifier)
	if err == nil && u.Status == model.StatusActive {
		token, err := auth.NewVerificationToken()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset request failed"})
		}
		exp := h.Now().Add(h.Cfg.VerifyTTL)
		v := model.Verification{
			UserID: u.ID, Identifier: identifier,
			Purpose:    model.PurposePasswordReset,
			SecretHash: auth.HashSecret(token), ExpiresAt: exp,
		}
		if err := h.Verifications.Put(ctx, v); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset request failed"})
		}
		channel := queue.ChannelEmail
		if repository.IsPhoneIdentifier(identifier) {
			channel = queue.ChannelSMS
		}
		if err := h.Publish(ctx, queue.NotificationEvent{
			UserID: u.ID, Identifier: identifier, Channel: channel,
			Purpose: model.PurposePasswordReset, Secret: token,
			ExpiresAt:   exp.Format(time.RFC3339),
			RequestedAt: h.Now().Format(time.RFC3339),
		}); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset request failed"})
		}
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

// PasswordResetConfirm consumes a reset token, installs the new password
// hash and revokes every outstanding refresh token for the account.
func (h *AuthHandler) PasswordResetConfirm(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = repository.NormalizeIdentifier(req.Identifier)
	if req.Identifier == "" || strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier, token and new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Verifications.Consume(ctx, model.PurposePasswordReset, req.Identifier,
		auth.HashSecret(strings.TrimSpace(req.Token)), h.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "reset token expired"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reset token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}

	hash, err := auth.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Users.UpdatePasswordHash(ctx, uid, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	// Old sessions die with the old password.
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		c.Logger().Errorf("password reset: revoke all for user %d: %v", uid, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "password updated"})
}

// Me returns the decoded session identity (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": middleware.UserID(c),
		"role":    middleware.ActiveRole(c),
	})
}

// openSession pins the session role, mints the token pair, stores the
// refresh hash and attaches the cookies. Shared by login, verify and
// refresh.
func (h *AuthHandler) openSession(c echo.Context, ctx context.Context, u model.User) error {
	role := u.SessionRole()
	if u.LastActiveRole != role {
		if err := h.Users.UpdateLastActiveRole(ctx, u.ID, role); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open session failed"})
		}
	}
	now := h.Now()
	access, err := auth.NewAccessToken(h.Cfg.JWTSecret, u.ID, role, h.Cfg.AccessTTL, now)
	if err != nil {
		// Signing-key trouble is misconfiguration, not a client error.
		c.Logger().Errorf("sign access token: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := auth.NewRefreshToken(h.Cfg.RefreshTTL, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, auth.HashSecret(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	h.Cookies.Attach(c, access.Token, access.Exp, refresh.Raw, refresh.Exp)

	return c.JSON(http.StatusOK, sessionResp{
		User: userPart{
			ID: u.ID, Identifier: u.Identifier,
			Role: role, Roles: u.Roles,
		},
		ExpiresAt: access.Exp,
	})
}

// issueVerification creates and dispatches the right verification secret
// for the identifier kind: an OTP for phones, a link token for emails.
func (h *AuthHandler) issueVerification(ctx context.Context, userID uint64, identifier string) (string, error) {
	var (
		secret  string
		purpose string
		channel string
		ttl     time.Duration
		err     error
	)
	if repository.IsPhoneIdentifier(identifier) {
		secret, err = auth.NewOTP()
		purpose, channel, ttl = model.PurposePhoneOTP, queue.ChannelSMS, h.Cfg.OTPTTL
	} else {
		secret, err = auth.NewVerificationToken()
		purpose, channel, ttl = model.PurposeEmailVerify, queue.ChannelEmail, h.Cfg.VerifyTTL
	}
	if err != nil {
		return "", err
	}
	exp := h.Now().Add(ttl)
	if err := h.Verifications.Put(ctx, model.Verification{
		UserID: userID, Identifier: identifier, Purpose: purpose,
		SecretHash: auth.HashSecret(secret), ExpiresAt: exp,
	}); err != nil {
		return "", err
	}
	if err := h.Publish(ctx, queue.NotificationEvent{
		UserID: userID, Identifier: identifier, Channel: channel,
		Purpose: purpose, Secret: secret,
		ExpiresAt:   exp.Format(time.RFC3339),
		RequestedAt: h.Now().Format(time.RFC3339),
	}); err != nil {
		return "", err
	}
	return channel, nil
}
