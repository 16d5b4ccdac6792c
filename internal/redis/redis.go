package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	ErrSeatHeld      = errors.New("seat is held by another booking")
	ErrDraftNotFound = errors.New("booking draft not found or expired")
	ErrDraftBusy     = errors.New("booking draft is being updated by another request")
)

const lockRetry = 20 * time.Millisecond

// unlockScript deletes the lock only while it still carries the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type Client struct {
	rdb *redis.Client
}

func NewClient(cfg *config.Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func seatKey(tourID uint, date, seat string) string {
	return fmt.Sprintf("seat_hold:%d:%s:%s", tourID, date, seat)
}

func draftKey(id string) string {
	return fmt.Sprintf("booking_draft:%s", id)
}

// HoldSeat reserves a seat of a tour departure for holder until ttl elapses.
// Holding a seat the holder already owns refreshes the expiry.
func (c *Client) HoldSeat(ctx context.Context, tourID uint, date, seat, holder string, ttl time.Duration) error {
	key := seatKey(tourID, date, seat)

	result := c.rdb.SetNX(ctx, key, holder, ttl)
	if result.Err() != nil {
		return fmt.Errorf("failed to hold seat: %w", result.Err())
	}
	if result.Val() {
		return nil
	}

	owner, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		// expired between SETNX and GET
		return c.HoldSeat(ctx, tourID, date, seat, holder, ttl)
	}
	if err != nil {
		return fmt.Errorf("failed to read seat hold: %w", err)
	}
	if owner != holder {
		return fmt.Errorf("seat %s: %w", seat, ErrSeatHeld)
	}
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// ReleaseSeat drops the hold if holder owns it.
func (c *Client) ReleaseSeat(ctx context.Context, tourID uint, date, seat, holder string) error {
	key := seatKey(tourID, date, seat)
	owner, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seat hold: %w", err)
	}
	if owner != holder {
		return nil
	}
	return c.rdb.Del(ctx, key).Err()
}

// HeldSeats returns seat id -> holder for every live hold on a tour departure.
func (c *Client) HeldSeats(ctx context.Context, tourID uint, date string) (map[string]string, error) {
	prefix := fmt.Sprintf("seat_hold:%d:%s:", tourID, date)
	held := map[string]string{}

	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		owner, err := c.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read seat hold: %w", err)
		}
		held[strings.TrimPrefix(key, prefix)] = owner
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan seat holds: %w", err)
	}
	return held, nil
}

func lockKey(id string) string {
	return fmt.Sprintf("booking_draft_lock:%s", id)
}

// LockDraft takes the per-draft mutex, retrying for up to wait. The lock
// expires on its own after ttl if the returned unlock is never called.
func (c *Client) LockDraft(ctx context.Context, id string, ttl, wait time.Duration) (func() error, error) {
	key := lockKey(id)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to lock draft: %w", err)
		}
		if ok {
			return func() error {
				return unlockScript.Run(context.Background(), c.rdb, []string{key}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrDraftBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

func (c *Client) SaveDraft(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, draftKey(id), data, ttl).Err()
}

func (c *Client) LoadDraft(ctx context.Context, id string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, draftKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return data, nil
}

func (c *Client) DeleteDraft(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, draftKey(id)).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
