package model

import "time"

// Verification token purposes. The purpose is part of the storage key so
// a password-reset token can never be replayed as an email verification.
const (
	PurposeEmailVerify   = "email-verify"
	PurposePhoneOTP      = "phone-otp"
	PurposePasswordReset = "password-reset"
)

// Verification is a pending single-use proof: a link token mailed to an
// email identifier, an OTP code texted to a phone, or a password-reset
// token. Only the SHA-256 hash of the secret is stored; the store keeps
// entries until ExpiresAt and deletes them atomically on consumption.
type Verification struct {
	UserID     uint64
	Identifier string
	Purpose    string
	SecretHash string
	ExpiresAt  time.Time
}
