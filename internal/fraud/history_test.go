package fraud

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistoryContentRoundTrip(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	now := time.Now()

	rec := ContentRecord{SessionID: "s1", Hash: "h1", Normalized: "bra mat", TokenLengths: []int{3, 3}, Timestamp: now}
	require.NoError(t, store.AppendContent(ctx, "biz-1", rec))

	got, err := store.RecentContent(ctx, "biz-1", now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID)

	sessionID, found, err := store.LookupContentHash(ctx, "biz-1", "h1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "s1", sessionID)

	// Scoped per business
	_, found, err = store.LookupContentHash(ctx, "biz-2", "h1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryHistoryHashIndexKeepsFirstWriter(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.AppendContent(ctx, "biz-1", ContentRecord{SessionID: "s1", Hash: "h1", Timestamp: now}))
	require.NoError(t, store.AppendContent(ctx, "biz-1", ContentRecord{SessionID: "s2", Hash: "h1", Timestamp: now}))

	sessionID, found, err := store.LookupContentHash(ctx, "biz-1", "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "s1", sessionID)
}

func TestMemoryHistoryRecentContentLimit(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.AppendContent(ctx, "biz-1", ContentRecord{
			SessionID: fmt.Sprintf("s%d", i),
			Hash:      fmt.Sprintf("h%d", i),
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.RecentContent(ctx, "biz-1", now.Add(-time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first
	assert.Equal(t, "s9", got[0].SessionID)
}

func TestMemoryHistorySubmissionsSince(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.AppendSubmission(ctx, "cust-1", SubmissionRecord{SessionID: "old", Timestamp: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.AppendSubmission(ctx, "cust-1", SubmissionRecord{SessionID: "new", Timestamp: now.Add(-10 * time.Minute)}))

	got, err := store.Submissions(ctx, "cust-1", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].SessionID)
}

func TestMemoryHistoryConcurrentAccess(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			businessID := fmt.Sprintf("biz-%d", i%4)
			customerHash := fmt.Sprintf("cust-%d", i%4)
			for j := 0; j < 50; j++ {
				_ = store.AppendContent(ctx, businessID, ContentRecord{
					SessionID: fmt.Sprintf("s-%d-%d", i, j),
					Hash:      fmt.Sprintf("h-%d-%d", i, j),
					Timestamp: time.Now(),
				})
				_ = store.AppendSubmission(ctx, customerHash, SubmissionRecord{
					SessionID: fmt.Sprintf("s-%d-%d", i, j),
					Timestamp: time.Now(),
				})
				_, _ = store.RecentContent(ctx, businessID, time.Now().Add(-time.Hour), 10)
				_, _ = store.Submissions(ctx, customerHash, time.Now().Add(-time.Hour))
			}
		}(i)
	}
	wg.Wait()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Businesses)
	assert.Equal(t, 4, stats.Customers)
	assert.Equal(t, 32*50, stats.ContentHashes)
	assert.Equal(t, 32*50, stats.Submissions)
}

func TestMemoryHistoryCleanup(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.AppendContent(ctx, "biz-1", ContentRecord{SessionID: "old", Hash: "h-old", Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.AppendContent(ctx, "biz-1", ContentRecord{SessionID: "new", Hash: "h-new", Timestamp: now}))
	require.NoError(t, store.AppendSubmission(ctx, "cust-1", SubmissionRecord{SessionID: "old", Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.AppendVoicePrint(ctx, "cust-2", VoiceFingerprint{Features: []float64{1}, Timestamp: now.Add(-48 * time.Hour)}))

	removed, err := store.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	// The expired hash no longer matches
	_, found, err := store.LookupContentHash(ctx, "biz-1", "h-old")
	require.NoError(t, err)
	assert.False(t, found)

	// Emptied keys disappear from stats entirely
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Businesses)
	assert.Equal(t, 0, stats.Customers)
	assert.Equal(t, 0, stats.VoicePrints)
}

func TestMemoryHistoryCancelledContext(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.AppendContent(ctx, "biz-1", ContentRecord{SessionID: "s1", Hash: "h1"})
	assert.Error(t, err)
}
