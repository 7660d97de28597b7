package credential

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/vietanh2810/checkin-api/internal/clock"
)

const redisKeyPrefix = "qr:"

// RedisStore shares tokens between API instances. Redis expires keys on its
// own; the issue time is stored alongside so the window is still measured
// against the API clock.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  clock.Clock
}

func NewRedisStore(client *redis.Client, ttl time.Duration, c clock.Clock) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = clock.Real{}
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		clock:  c,
	}
}

func (s *RedisStore) Issue(ctx context.Context, activationID uint) (string, error) {
	id := newTokenID()
	value := fmt.Sprintf("%d:%d", activationID, s.clock.Now().UnixMilli())

	// One extra second so the key outlives the inclusive boundary.
	if err := s.client.Set(ctx, redisKeyPrefix+id, value, s.ttl+time.Second).Err(); err != nil {
		return "", fmt.Errorf("s.client.Set -> %w", err)
	}

	return id, nil
}

func (s *RedisStore) Validate(ctx context.Context, tokenID string) (Validation, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Validation{}, nil
		}

		return Validation{}, fmt.Errorf("s.client.Get -> %w", err)
	}

	activationID, issuedAt, ok := parseRedisValue(value)
	if !ok || expired(issuedAt, s.clock.Now(), s.ttl) {
		if err = s.Invalidate(ctx, tokenID); err != nil {
			return Validation{}, err
		}
		return Validation{}, nil
	}

	return Validation{Valid: true, ActivationID: activationID, IssuedAt: issuedAt}, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+tokenID).Err(); err != nil {
		return fmt.Errorf("s.client.Del -> %w", err)
	}

	return nil
}

// Sweep is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) Sweep(context.Context) error {
	return nil
}

func parseRedisValue(value string) (uint, time.Time, bool) {
	rawID, rawIssued, found := strings.Cut(value, ":")
	if !found {
		return 0, time.Time{}, false
	}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	ms, err := strconv.ParseInt(rawIssued, 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}

	return uint(id), time.UnixMilli(ms), true
}
