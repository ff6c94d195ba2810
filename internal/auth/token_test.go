package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/agrolink/farm-marketplace/internal/model"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewAccessToken(testSecret, 42, model.RoleBuyer, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if !tok.Exp.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", tok.Exp)
	}

	uid, role, res := VerifyAccessToken(testSecret, tok.Token, now.Add(14*time.Minute))
	if res != VerifyOK {
		t.Fatalf("expected VerifyOK, got %v", res)
	}
	if uid != 42 || role != model.RoleBuyer {
		t.Fatalf("claims not preserved: uid=%d role=%s", uid, role)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewAccessToken(testSecret, 7, model.RoleFarmer, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	uid, role, res := VerifyAccessToken(testSecret, tok.Token, now.Add(16*time.Minute))
	if res != VerifyExpired {
		t.Fatalf("expected VerifyExpired, got %v", res)
	}
	if uid != 0 || role != "" {
		t.Fatalf("expired token leaked claims: uid=%d role=%q", uid, role)
	}
}

func TestAccessTokenTampering(t *testing.T) {
	now := time.Now().UTC()
	tok, err := NewAccessToken(testSecret, 7, model.RoleFarmer, time.Hour, now)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	if _, _, res := VerifyAccessToken("other-secret", tok.Token, now); res != VerifyInvalid {
		t.Fatalf("wrong secret accepted: %v", res)
	}

	parts := strings.Split(tok.Token, ".")
	mangled := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, _, res := VerifyAccessToken(testSecret, mangled, now); res != VerifyInvalid {
		t.Fatalf("tampered signature accepted: %v", res)
	}

	if _, _, res := VerifyAccessToken(testSecret, "not-a-jwt", now); res != VerifyInvalid {
		t.Fatalf("garbage accepted: %v", res)
	}
}

func TestRefreshTokenGeneration(t *testing.T) {
	now := time.Now().UTC()
	a, err := NewRefreshToken(7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken(7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a.Raw == b.Raw {
		t.Fatal("two refresh tokens collided")
	}
	if len(a.Raw) != 96 {
		t.Fatalf("unexpected token length %d", len(a.Raw))
	}
	if HashSecret(a.Raw) == HashSecret(b.Raw) {
		t.Fatal("hashes collided")
	}
	if HashSecret(a.Raw) != HashSecret(a.Raw) {
		t.Fatal("hash not deterministic")
	}
}

func TestNewOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := NewOTP()
		if err != nil {
			t.Fatalf("NewOTP: %v", err)
		}
		if len(code) != OTPDigits {
			t.Fatalf("OTP %q has wrong length", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("OTP %q contains non-digit", code)
			}
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4) // min cost keeps the test fast
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("password stored in the clear")
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "S3cret") {
		t.Fatal("wrong password accepted")
	}
}
