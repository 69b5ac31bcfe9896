package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundrost/feedback-fraud/pkg/redis"
)

func newRedisHistory(t *testing.T) (*RedisHistoryStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return NewRedisHistoryStore(&redis.Client{Client: db}), mock
}

func TestRedisHistoryAppendSubmission(t *testing.T) {
	store, mock := newRedisHistory(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	rec := SubmissionRecord{SessionID: "s1", LocationID: "loc-1", Timestamp: at}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectZAdd("fraud:subs:cust-1", goredis.Z{
		Score:  float64(at.UnixNano()),
		Member: string(payload),
	}).SetVal(1)
	mock.ExpectSAdd("fraud:customers", "cust-1").SetVal(1)

	require.NoError(t, store.AppendSubmission(ctx, "cust-1", rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHistoryReadSubmissions(t *testing.T) {
	store, mock := newRedisHistory(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	since := at.Add(-time.Hour)

	payload, err := json.Marshal(SubmissionRecord{SessionID: "s1", Timestamp: at})
	require.NoError(t, err)

	mock.ExpectZRangeByScore("fraud:subs:cust-1", &goredis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.UnixNano()),
		Max: "+inf",
	}).SetVal([]string{string(payload), "not json"})

	got, err := store.Submissions(ctx, "cust-1", since)
	require.NoError(t, err)
	// Undecodable members are skipped, not fatal
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHistoryAppendContent(t *testing.T) {
	store, mock := newRedisHistory(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	rec := ContentRecord{SessionID: "s1", Hash: "h1", Normalized: "bra mat", TokenLengths: []int{3, 3}, Timestamp: at}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectZAdd("fraud:content:biz-1", goredis.Z{
		Score:  float64(at.UnixNano()),
		Member: string(payload),
	}).SetVal(1)
	mock.ExpectHSetNX("fraud:hashidx:biz-1", "h1", "s1").SetVal(true)
	mock.ExpectZAdd("fraud:hashexp:biz-1", goredis.Z{
		Score:  float64(at.UnixNano()),
		Member: "h1",
	}).SetVal(1)
	mock.ExpectSAdd("fraud:businesses", "biz-1").SetVal(1)

	require.NoError(t, store.AppendContent(ctx, "biz-1", rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHistoryLookupContentHash(t *testing.T) {
	store, mock := newRedisHistory(t)
	ctx := context.Background()

	mock.ExpectHGet("fraud:hashidx:biz-1", "h1").SetVal("s1")
	sessionID, found, err := store.LookupContentHash(ctx, "biz-1", "h1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "s1", sessionID)

	mock.ExpectHGet("fraud:hashidx:biz-1", "h2").RedisNil()
	_, found, err = store.LookupContentHash(ctx, "biz-1", "h2")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}
