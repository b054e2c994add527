package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the shared Redis store.
type RedisConfig struct {
	Address   string
	Username  string
	Password  string
	DB        int
	TLS       bool
	Timeout   time.Duration
	KeyPrefix string
}

const (
	defaultRedisTimeout   = 5 * time.Second
	defaultRedisKeyPrefix = "wattrewards"
)

// windowCounter increments KEYS[1] and arms its expiry on the first hit.
// Returns {count, pttl}.
var windowCounter = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisClient implements Store on go-redis under a key namespace.
type RedisClient struct {
	client    *redis.Client
	namespace string
}

// NewRedisClient dials Redis and pings it once so a bad address fails startup.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, errors.New("redis: address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c := newRedisClient(redis.NewClient(opts), cfg.KeyPrefix)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newRedisClient(client *redis.Client, namespace string) *RedisClient {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = defaultRedisKeyPrefix
	}
	return &RedisClient{client: client, namespace: namespace}
}

func (c *RedisClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	values, err := windowCounter.Run(ctx, c.client, []string{c.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, errors.New("redis: unexpected counter reply")
	}
	if values[1] < 0 {
		return values[0], window, nil
	}
	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, max(ttl, 0)).Err()
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = c.key(key)
	}
	return c.client.Del(ctx, namespaced...).Err()
}

// key joins the namespace and key with single colons. Keys already inside the
// namespace are returned as is.
func (c *RedisClient) key(raw string) string {
	raw = strings.Trim(raw, ":")
	for strings.Contains(raw, "::") {
		raw = strings.ReplaceAll(raw, "::", ":")
	}
	if raw == c.namespace || strings.HasPrefix(raw, c.namespace+":") {
		return raw
	}
	return c.namespace + ":" + raw
}
