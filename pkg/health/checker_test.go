package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCheckerConfig(t *testing.T) {
	config := DefaultCheckerConfig()
	assert.Equal(t, 2*time.Second, config.Timeout)
}

func TestDatabaseCheckerNilPool(t *testing.T) {
	check := DatabaseChecker(nil)
	err := check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection is nil")
}

func TestRedisCheckerNilClient(t *testing.T) {
	check := RedisChecker(nil)
	err := check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis client is nil")
}

func TestAsyncCheckerCompletes(t *testing.T) {
	check := AsyncChecker(func() error { return nil }, time.Second)
	assert.NoError(t, check())
}

func TestAsyncCheckerTimesOut(t *testing.T) {
	check := AsyncChecker(func() error {
		time.Sleep(time.Second)
		return nil
	}, 20*time.Millisecond)
	err := check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestCachedCheckerCachesResult(t *testing.T) {
	calls := 0
	cached := NewCachedChecker(func() error {
		calls++
		return nil
	}, time.Minute)

	require.NoError(t, cached.Check())
	require.NoError(t, cached.Check())
	assert.Equal(t, 1, calls)
}

func TestCachedCheckerCachesFailure(t *testing.T) {
	calls := 0
	cached := NewCachedChecker(func() error {
		calls++
		return errors.New("connection refused")
	}, time.Minute)

	require.Error(t, cached.Check())
	require.Error(t, cached.Check())
	assert.Equal(t, 1, calls)
}

func TestCachedCheckerExpires(t *testing.T) {
	calls := 0
	cached := NewCachedChecker(func() error {
		calls++
		return nil
	}, 10*time.Millisecond)

	require.NoError(t, cached.Check())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cached.Check())
	assert.Equal(t, 2, calls)
}
