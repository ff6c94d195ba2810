package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/agrolink/farm-marketplace/internal/auth"
	"github.com/agrolink/farm-marketplace/internal/model"
)

// UserRepo is the credential store over the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, identifier, password_hash, roles, last_active_role, status, created_at, updated_at"

// Create inserts a pending user and returns its ID. The identifier is
// normalized to lower case; duplicate identifiers map to
// ErrDuplicateIdentifier regardless of the existing account's status.
func (r *UserRepo) Create(ctx context.Context, identifier, password string, roles model.RoleSet, cost int) (uint64, error) {
	identifier = NormalizeIdentifier(identifier)
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (identifier, password_hash, roles, status) VALUES (?,?,?,?)",
		identifier, hash, model.EncodeRoleSet(roles), model.StatusPending)
	if err != nil {
		// MySQL duplicate-key error code.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicateIdentifier
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByIdentifier fetches a user by normalized identifier. A missing
// row surfaces as ErrNotFound; the caller is responsible for presenting
// it identically to a password mismatch.
func (r *UserRepo) FindByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	identifier = NormalizeIdentifier(identifier)
	return r.queryOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE identifier=? LIMIT 1", identifier)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (model.User, error) {
	return r.queryOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// UpdateLastActiveRole persists the role the user's next session defaults
// to. Fails with ErrInvalidRole when the role is outside the granted set.
func (r *UserRepo) UpdateLastActiveRole(ctx context.Context, userID uint64, role model.Role) error {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Roles.Contains(role) {
		return ErrInvalidRole
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET last_active_role=? WHERE id=?", string(role), userID)
	return err
}

// SetStatus performs an account lifecycle transition. Only
// PENDING->ACTIVE (verification) and ACTIVE<->SUSPENDED (admin action)
// are legal; anything else fails with ErrInvalidTransition.
func (r *UserRepo) SetStatus(ctx context.Context, userID uint64, status string) error {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !transitionAllowed(u.Status, status) {
		return ErrInvalidTransition
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET status=? WHERE id=?", status, userID)
	return err
}

// UpdatePasswordHash replaces the stored bcrypt hash (password reset).
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, userID)
	return err
}

func transitionAllowed(from, to string) bool {
	switch from {
	case model.StatusPending:
		return to == model.StatusActive
	case model.StatusActive:
		return to == model.StatusSuspended
	case model.StatusSuspended:
		return to == model.StatusActive
	}
	return false
}

// queryOne runs a single-row user query, retrying once on transient
// errors before surfacing them. sql.ErrNoRows maps to ErrNotFound.
func (r *UserRepo) queryOne(ctx context.Context, q string, args ...interface{}) (model.User, error) {
	u, err := r.scanUser(ctx, q, args...)
	if err != nil && !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
		u, err = r.scanUser(ctx, q, args...)
	}
	return u, err
}

func (r *UserRepo) scanUser(ctx context.Context, q string, args ...interface{}) (model.User, error) {
	var (
		u        model.User
		rolesRaw string
		lastRole sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, args...).
		Scan(&u.ID, &u.Identifier, &u.PasswordHash, &rolesRaw, &lastRole, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Roles, err = model.ParseRoleSet(rolesRaw)
	if err != nil {
		return model.User{}, err
	}
	if lastRole.Valid {
		role, err := model.ParseRole(lastRole.String)
		if err != nil {
			return model.User{}, err
		}
		u.LastActiveRole = role
	}
	return u, nil
}

// NormalizeIdentifier lower-cases and trims an email or phone identifier
// so lookups and uniqueness are case-insensitive.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// IsPhoneIdentifier reports whether the identifier looks like an E.164
// phone number rather than an email. It decides whether verification
// uses an OTP code or an emailed link.
func IsPhoneIdentifier(identifier string) bool {
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" || strings.Contains(identifier, "@") {
		return false
	}
	if strings.HasPrefix(identifier, "+") {
		identifier = identifier[1:]
	}
	if identifier == "" {
		return false
	}
	for _, c := range identifier {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
