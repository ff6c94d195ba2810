package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var refreshCols = []string{"user_id", "expires_at", "revoked_at"}

func TestValidateRefresh(t *testing.T) {
	now := time.Now().UTC()
	revoked := now.Add(-time.Minute)

	cases := []struct {
		name      string
		expiresAt time.Time
		revokedAt interface{}
		wantUser  uint64
		wantErr   error
	}{
		{"live", now.Add(time.Hour), nil, 8, nil},
		{"expired", now.Add(-time.Hour), nil, 0, ErrNotFound},
		{"revoked", now.Add(time.Hour), revoked, 0, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()
			repo := NewTokenRepo(db)

			mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
				WithArgs("somehash").
				WillReturnRows(sqlmock.NewRows(refreshCols).AddRow(8, tc.expiresAt, tc.revokedAt))

			uid, err := repo.ValidateRefresh(context.Background(), "somehash", now)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if uid != tc.wantUser {
				t.Fatalf("uid = %d, want %d", uid, tc.wantUser)
			}
		})
	}
}

func TestValidateRefreshUnknownHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows(refreshCols))

	if _, err := repo.ValidateRefresh(context.Background(), "nosuch", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreAndRevoke(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewTokenRepo(db)
	exp := time.Now().Add(7 * 24 * time.Hour).UTC()

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(3), "hash-a", exp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs("hash-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.StoreRefresh(context.Background(), 3, "hash-a", exp); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if err := repo.RevokeByHash(context.Background(), "hash-a"); err != nil {
		t.Fatalf("RevokeByHash: %v", err)
	}
	if err := repo.RevokeAllForUser(context.Background(), 3); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
