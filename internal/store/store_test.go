package store

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"meligy/internal/config"
	"meligy/internal/redis"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

func TestMemoryJSONRoundTripAndMissingKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var got payload
	found, err := GetJSON(ctx, s, "missing", &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, SetJSON(ctx, s, "k", payload{Count: 3, Date: "Mon Jan 02 2006"}))
	found, err = GetJSON(ctx, s, "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, got.Count)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetJSONRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "k", []byte("{not json")))
	var got payload
	_, err := GetJSON(ctx, s, "k", &got)
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed store tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := redis.NewRedisClient(&config.Config{Redis: config.RedisConfig{Host: host, Port: port}})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s := NewRedis(client)
	key := "store-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)

	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, SetJSON(ctx, s, key, payload{Count: 7}))
	var got payload
	found, err := GetJSON(ctx, s, key, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 7, got.Count)
	require.NoError(t, s.Delete(ctx, key))
}
