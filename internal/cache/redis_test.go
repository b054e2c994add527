package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{Address: "  "})
	require.Error(t, err)
}

func TestRedisKeyNamespacing(t *testing.T) {
	client := newRedisClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	t.Cleanup(func() { _ = client.Close() })

	require.Equal(t, "wattrewards:ratelimit:1.2.3.4", client.key("ratelimit::1.2.3.4"))
	require.Equal(t, "wattrewards:otp", client.key("wattrewards:otp"))

	custom := newRedisClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "staging")
	t.Cleanup(func() { _ = custom.Close() })
	require.Equal(t, "staging:otp:x", custom.key(":otp:x"))
}
