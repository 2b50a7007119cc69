package trigger

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/comigor/bad-employee-go/internal/logger"
)

// MemoryCooldown allows one reply per author per period within this process.
type MemoryCooldown struct {
	period time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[int64]time.Time
}

func NewMemoryCooldown(period time.Duration) *MemoryCooldown {
	return &MemoryCooldown{period: period, now: time.Now, last: make(map[int64]time.Time)}
}

func (c *MemoryCooldown) Allow(_ context.Context, authorID int64) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.last[authorID]; ok && now.Sub(t) < c.period {
		return false
	}
	c.last[authorID] = now
	return true
}

// RedisCooldown shares the cooldown between bot instances.
// Redis errors fail open: the reply is allowed.
type RedisCooldown struct {
	client *redis.Client
	period time.Duration
	prefix string
}

func NewRedisCooldown(client *redis.Client, period time.Duration) *RedisCooldown {
	return &RedisCooldown{client: client, period: period, prefix: "bad_employee:cooldown:"}
}

func (c *RedisCooldown) Allow(ctx context.Context, authorID int64) bool {
	ok, err := c.client.SetNX(ctx, c.prefix+strconv.FormatInt(authorID, 10), 1, c.period).Result()
	if err != nil {
		logger.L.Warn("cooldown check failed; allowing reply", "author", authorID, "error", err)
		return true
	}
	return ok
}

// NewRedisClient connects to addr and pings it once.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.L.Info("connected to redis", "addr", addr)
	return client, nil
}
