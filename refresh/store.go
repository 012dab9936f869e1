package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every failure of the backing Redis client.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidKey is returned before any I/O when an account id or token id is
// empty.
var ErrInvalidKey = errors.New("refresh store: empty account or token id")

// Status is the outcome of comparing a presented refresh-token id with the one
// stored for an account.
type Status int

const (
	// StatusUnknown means no id is stored for the account.
	StatusUnknown Status = iota
	// StatusValid means the stored id equals the presented one.
	StatusValid
	// StatusReplayed means a different id is stored: the presented token was
	// already rotated out.
	StatusReplayed
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusReplayed:
		return "replayed"
	default:
		return "unknown"
	}
}

const (
	consumeStatusMissing  int64 = 0
	consumeStatusMatched  int64 = 1
	consumeStatusMismatch int64 = 2
)

// Both branches delete: a match is consumed, a mismatch forces the account
// back to no session.
const consumeScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
redis.call("DEL", KEYS[1])
if current == ARGV[1] then
  return 1
end
return 2
`

var consumeLua = redis.NewScript(consumeScript)

// Store keeps the current refresh-token id of every account in Redis, one key
// per account, expiring with the refresh token itself.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore returns a Store writing keys under prefix with the given TTL. A
// blank prefix defaults to "iam".
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "iam"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) key(accountID string) string {
	return s.prefix + ":rt:" + accountID
}

func (s *Store) replayKey(accountID string) string {
	return s.prefix + ":rp:" + accountID
}

// TTL reports the lifetime given to inserted ids.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Insert stores tokenID as the only valid id for accountID, overwriting any
// previous id.
func (s *Store) Insert(ctx context.Context, accountID, tokenID string) error {
	if accountID == "" || tokenID == "" {
		return ErrInvalidKey
	}
	if s.ttl <= 0 {
		return errors.New("refresh store: ttl must be > 0")
	}
	if err := s.redis.Set(ctx, s.key(accountID), tokenID, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// InsertUntil is Insert with an absolute expiry, normally the exp claim of
// the refresh token carrying tokenID, so the entry never outlives its token.
func (s *Store) InsertUntil(ctx context.Context, accountID, tokenID string, expiresAt time.Time) error {
	if accountID == "" || tokenID == "" {
		return ErrInvalidKey
	}
	if !expiresAt.After(time.Now()) {
		return errors.New("refresh store: expiry must be in the future")
	}
	err := s.redis.SetArgs(ctx, s.key(accountID), tokenID, redis.SetArgs{ExpireAt: expiresAt}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Validate compares tokenID with the stored id without modifying anything.
func (s *Store) Validate(ctx context.Context, accountID, tokenID string) (Status, error) {
	if accountID == "" || tokenID == "" {
		return StatusUnknown, ErrInvalidKey
	}

	current, err := s.redis.Get(ctx, s.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return StatusUnknown, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if current != tokenID {
		return StatusReplayed, nil
	}
	return StatusValid, nil
}

// Invalidate removes the stored id of accountID. Removing a missing id is not
// an error.
func (s *Store) Invalidate(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrInvalidKey
	}
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Consume atomically validates and invalidates. The key is deleted on both
// StatusValid and StatusReplayed, so of several concurrent callers presenting
// the same id exactly one observes StatusValid.
func (s *Store) Consume(ctx context.Context, accountID, tokenID string) (Status, error) {
	if accountID == "" || tokenID == "" {
		return StatusUnknown, ErrInvalidKey
	}

	code, err := consumeLua.Run(ctx, s.redis, []string{s.key(accountID)}, tokenID).Int64()
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case consumeStatusMissing:
		return StatusUnknown, nil
	case consumeStatusMatched:
		return StatusValid, nil
	case consumeStatusMismatch:
		return StatusReplayed, nil
	default:
		return StatusUnknown, fmt.Errorf("%w: invalid consume script status %d", ErrRedisUnavailable, code)
	}
}

// TrackReplay counts replays for accountID inside window and returns the
// running count. The window starts at the first replay.
func (s *Store) TrackReplay(ctx context.Context, accountID string, window time.Duration) (int64, error) {
	if accountID == "" {
		return 0, ErrInvalidKey
	}
	if window <= 0 {
		window = 24 * time.Hour
	}

	key := s.replayKey(accountID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

// Ping checks connectivity and reports the round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
