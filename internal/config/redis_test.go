package config

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestAsynqRedisOptHostPort(t *testing.T) {
	opt, err := AsynqRedisOpt(&Config{RedisURL: "localhost:6379", RedisPassword: "secret", RedisDB: 2})
	require.NoError(t, err)

	clientOpt, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	require.Equal(t, "localhost:6379", clientOpt.Addr)
	require.Equal(t, "secret", clientOpt.Password)
	require.Equal(t, 2, clientOpt.DB)
}

func TestAsynqRedisOptShortAddress(t *testing.T) {
	// Addresses shorter than the scheme prefixes are plain host:port.
	for _, addr := range []string{"", "r", "redis:80"} {
		opt, err := AsynqRedisOpt(&Config{RedisURL: addr})
		require.NoError(t, err)

		clientOpt, ok := opt.(asynq.RedisClientOpt)
		require.True(t, ok, "address %q", addr)
		require.Equal(t, addr, clientOpt.Addr)
	}
}

func TestAsynqRedisOptURL(t *testing.T) {
	opt, err := AsynqRedisOpt(&Config{RedisURL: "redis://:pass@localhost:6380/3"})
	require.NoError(t, err)

	clientOpt, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	require.Equal(t, "localhost:6380", clientOpt.Addr)
	require.Equal(t, 3, clientOpt.DB)
}
