package model

import "time"

// Account status values as stored in users.status.
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

// User represents an identity record as stored in the `users` table.
// Each field corresponds to a column. Identifier is the login handle, an
// email address or a phone number in E.164 form; Roles is the full set
// of roles the account may assume; LastActiveRole is the role the most
// recent session operated under and is empty until the first login or
// role switch.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Identifier     – unique email or phone used to log in.
//  PasswordHash   – bcrypt hashed password.
//  Roles          – granted role set (users.roles, comma separated).
//  LastActiveRole – users.last_active_role, nullable.
//  Status         – PENDING, ACTIVE or SUSPENDED.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64
	Identifier     string
	PasswordHash   string
	Roles          RoleSet
	LastActiveRole Role // "" when never set
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SessionRole resolves the role a new session for this user starts in:
// the last active role when recorded and still granted, otherwise the
// role set's default.
func (u User) SessionRole() Role {
	if u.LastActiveRole != "" && u.Roles.Contains(u.LastActiveRole) {
		return u.LastActiveRole
	}
	return u.Roles.Default()
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and carries expiry and revocation
// metadata. The plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
