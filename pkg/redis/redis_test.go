package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundrost/feedback-fraud/pkg/config"
)

func TestRedisConfigRedisAddr(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		expected string
	}{
		{"default localhost", config.RedisConfig{Host: "localhost", Port: "6379"}, "localhost:6379"},
		{"custom host and port", config.RedisConfig{Host: "redis.example.com", Port: "6380"}, "redis.example.com:6380"},
		{"IP address", config.RedisConfig{Host: "192.168.1.100", Port: "6379"}, "192.168.1.100:6379"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cfg.RedisAddr())
		})
	}
}

func newMockedClient(t *testing.T) (*Client, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return &Client{Client: db}, mock
}

func TestSetWithExpiration(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectSet("session:1", "value", time.Minute).SetVal("OK")
	require.NoError(t, client.SetWithExpiration(context.Background(), "session:1", "value", time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetString(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectGet("session:1").SetVal("value")
	got, err := client.GetString(context.Background(), "session:1")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	mock.ExpectGet("missing").RedisNil()
	_, err = client.GetString(context.Background(), "missing")
	assert.ErrorIs(t, err, goredis.Nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectExists("present").SetVal(1)
	found, err := client.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, found)

	mock.ExpectExists("absent").SetVal(0)
	found, err = client.Exists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	client, mock := newMockedClient(t)

	mock.ExpectDel("a", "b").SetVal(2)
	require.NoError(t, client.Delete(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendScoredAndRangeSince(t *testing.T) {
	client, mock := newMockedClient(t)
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	since := at.Add(-time.Hour)

	mock.ExpectZAdd("history:cust-1", goredis.Z{
		Score:  float64(at.UnixNano()),
		Member: "entry",
	}).SetVal(1)
	require.NoError(t, client.AppendScored(context.Background(), "history:cust-1", "entry", at))

	mock.ExpectZRangeByScore("history:cust-1", &goredis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.UnixNano()),
		Max: "+inf",
	}).SetVal([]string{"entry"})
	got, err := client.RangeSince(context.Background(), "history:cust-1", since)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry"}, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrimBefore(t *testing.T) {
	client, mock := newMockedClient(t)
	before := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	mock.ExpectZRemRangeByScore("history:cust-1", "-inf", fmt.Sprintf("(%d", before.UnixNano())).SetVal(3)
	require.NoError(t, client.TrimBefore(context.Background(), "history:cust-1", before))
	assert.NoError(t, mock.ExpectationsWereMet())
}
