package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrolink/farm-marketplace/internal/model"
)

// VerificationStore keeps single-use verification tokens and OTP codes in
// Redis. Entries are keyed by (purpose, identifier), so issuing a new
// token for the same identifier overwrites — and thereby invalidates —
// any outstanding one, which is exactly the resend semantics required.
// Redis TTL handles cleanup; the logical expiry lives inside the entry so
// an expired-but-not-yet-evicted token is reported as expired rather
// than missing.
type VerificationStore struct{ RDB *redis.Client }

func NewVerificationStore(rdb *redis.Client) *VerificationStore {
	return &VerificationStore{RDB: rdb}
}

// evictionGrace keeps expired entries around long enough to answer
// "expired" instead of "not found".
const evictionGrace = time.Hour

// consumeScript atomically checks and deletes a verification entry. A
// secret mismatch leaves the entry in place so a typo'd OTP does not
// burn the real one. Return codes: 0 missing, -1 mismatch, -2 expired,
// 1 consumed (followed by the user id).
var consumeScript = redis.NewScript(`
    local h = redis.call('HMGET', KEYS[1], 'user_id', 'secret_hash', 'expires_at')
    if not h[1] then
        return {0}
    end
    if h[2] ~= ARGV[1] then
        return {-1}
    end
    if tonumber(h[3]) < tonumber(ARGV[2]) then
        redis.call('DEL', KEYS[1])
        return {-2}
    end
    redis.call('DEL', KEYS[1])
    return {1, h[1]}
`)

func verificationKey(purpose, identifier string) string {
	return fmt.Sprintf("verify:%s:%s", purpose, NormalizeIdentifier(identifier))
}

// Put stores a verification entry, replacing any outstanding one for the
// same purpose and identifier.
func (s *VerificationStore) Put(ctx context.Context, v model.Verification) error {
	key := verificationKey(v.Purpose, v.Identifier)
	pipe := s.RDB.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"user_id", strconv.FormatUint(v.UserID, 10),
		"secret_hash", v.SecretHash,
		"expires_at", strconv.FormatInt(v.ExpiresAt.UTC().Unix(), 10),
	)
	pipe.ExpireAt(ctx, key, v.ExpiresAt.Add(evictionGrace))
	_, err := pipe.Exec(ctx)
	return err
}

// Consume validates and deletes a verification entry in one atomic step.
// On success the owning user id is returned; a second call with the same
// secret finds nothing and fails with ErrNotFound.
func (s *VerificationStore) Consume(ctx context.Context, purpose, identifier, secretHash string, now time.Time) (uint64, error) {
	key := verificationKey(purpose, identifier)
	res, err := consumeScript.Run(ctx, s.RDB, []string{key},
		secretHash, now.UTC().Unix()).Slice()
	if err != nil {
		return 0, err
	}
	code, _ := res[0].(int64)
	switch code {
	case 1:
		raw, _ := res[1].(string)
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt verification entry %s: %w", key, err)
		}
		return userID, nil
	case -2:
		return 0, ErrTokenExpired
	default: // missing or secret mismatch
		return 0, ErrNotFound
	}
}

// Invalidate drops any outstanding entry for the identifier and purpose.
func (s *VerificationStore) Invalidate(ctx context.Context, purpose, identifier string) error {
	return s.RDB.Del(ctx, verificationKey(purpose, identifier)).Err()
}
