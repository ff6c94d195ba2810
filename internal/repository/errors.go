// Package repository implements the persistent stores of the identity
// subsystem: the MySQL credential store and refresh-token table, and the
// Redis-backed verification-token store. The sentinel errors below form
// the failure taxonomy handlers translate into HTTP responses; internal
// distinctions (wrong identifier vs wrong password) are collapsed before
// reaching the client.
package repository

import "errors"

// ErrNotFound is returned when a user or token row does not exist.
// Handlers must never echo it verbatim for login lookups: a missing
// identifier and a wrong password produce the same client response.
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdentifier signals a registration against an identifier
// that is already held by a pending or active account. HTTP 409.
var ErrDuplicateIdentifier = errors.New("identifier already registered")

// ErrInvalidRole is returned when a role is not in the user's granted
// set. HTTP 403.
var ErrInvalidRole = errors.New("role not granted")

// ErrInvalidTransition is returned for account status changes other than
// pending->active and active<->suspended.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTokenExpired is returned when a verification token or OTP exists
// but its window has lapsed. HTTP 410.
var ErrTokenExpired = errors.New("token expired")
