// Package auth provides token issuance and verification plus password
// and OTP helpers for the identity service.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agrolink/farm-marketplace/internal/model"
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string. Access tokens are short-lived,
// carry the session's active role, and are presented either in the
// session cookie or in the Authorization header.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken represents a long-lived opaque token used to obtain new
// access tokens. The Raw field is returned to the client; the database
// stores only the SHA-256 hash of it.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// VerifyResult classifies the outcome of access-token verification. The
// caller may log Expired and Invalid differently, but both must be
// treated as an authentication failure toward the client.
type VerifyResult int

const (
	VerifyOK VerifyResult = iota
	VerifyExpired
	VerifyInvalid
)

var errUnexpectedSigning = errors.New("unexpected signing method")

// NewAccessToken builds and signs an HS256 JWT for a user session. The
// claims are subject (sub), the active role, expiration (exp) and issued
// at (iat). A signing failure means the key material is unusable and is
// fatal for the request, never a client error.
func NewAccessToken(secret string, userID uint64, role model.Role, ttl time.Duration, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken decodes an access token and checks its signature and
// expiry against now. On VerifyOK the subject and role are returned. An
// expired token with a valid signature yields VerifyExpired; anything
// else — bad signature, wrong algorithm, malformed claims, a role
// outside the closed set — yields VerifyInvalid with zero values.
func VerifyAccessToken(secret, raw string, now time.Time) (uint64, model.Role, VerifyResult) {
	parser := jwt.NewParser(jwt.WithTimeFunc(func() time.Time { return now.UTC() }))
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", VerifyExpired
		}
		return 0, "", VerifyInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", VerifyInvalid
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, "", VerifyInvalid
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return 0, "", VerifyInvalid
	}
	role, err := model.ParseRole(roleStr)
	if err != nil {
		return 0, "", VerifyInvalid
	}
	return uint64(sub), role, VerifyOK
}

// NewRefreshToken returns a cryptographically random opaque token and its
// expiration. Refresh tokens outlive access tokens and are exchanged for
// new access tokens at /v1/auth/refresh.
func NewRefreshToken(ttl time.Duration, now time.Time) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: raw, Exp: now.UTC().Add(ttl)}, nil
}

// HashSecret returns the SHA-256 hash of a raw secret (refresh or
// verification token) as a hex string. Storing only the hash keeps a
// leaked database from being replayed as live sessions.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewVerificationToken returns a random token for email verification and
// password-reset links.
func NewVerificationToken() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
