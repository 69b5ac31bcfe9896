package fraud

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const historyShards = 64

// memoryShard holds the history slice of one key range. Reads take the read
// lock, appends take the write lock, so different shards never contend.
type memoryShard struct {
	mu          sync.RWMutex
	content     map[string][]ContentRecord     // businessID -> records
	hashIndex   map[string]map[string]string   // businessID -> content hash -> session ID
	submissions map[string][]SubmissionRecord  // customerHash -> records
	voicePrints map[string][]VoiceFingerprint  // customerHash -> prints
}

// MemoryHistoryStore is the sharded in-memory HistoryStore used in tests and
// single-instance deployments.
type MemoryHistoryStore struct {
	shards [historyShards]*memoryShard
}

// NewMemoryHistoryStore creates an empty in-memory history store
func NewMemoryHistoryStore() *MemoryHistoryStore {
	s := &MemoryHistoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			content:     make(map[string][]ContentRecord),
			hashIndex:   make(map[string]map[string]string),
			submissions: make(map[string][]SubmissionRecord),
			voicePrints: make(map[string][]VoiceFingerprint),
		}
	}
	return s
}

func (s *MemoryHistoryStore) shardFor(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%historyShards]
}

// AppendContent implements HistoryStore
func (s *MemoryHistoryStore) AppendContent(ctx context.Context, businessID string, rec ContentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	shard := s.shardFor("b:" + businessID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.content[businessID] = append(shard.content[businessID], rec)
	idx, ok := shard.hashIndex[businessID]
	if !ok {
		idx = make(map[string]string)
		shard.hashIndex[businessID] = idx
	}
	if _, exists := idx[rec.Hash]; !exists {
		idx[rec.Hash] = rec.SessionID
	}
	return nil
}

// RecentContent implements HistoryStore. Newest records are returned first,
// capped at limit.
func (s *MemoryHistoryStore) RecentContent(ctx context.Context, businessID string, since time.Time, limit int) ([]ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shard := s.shardFor("b:" + businessID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	records := shard.content[businessID]
	out := make([]ContentRecord, 0, minInt(len(records), limit))
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		if records[i].Timestamp.Before(since) {
			continue
		}
		out = append(out, records[i])
	}
	return out, nil
}

// LookupContentHash implements HistoryStore
func (s *MemoryHistoryStore) LookupContentHash(ctx context.Context, businessID, hash string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	shard := s.shardFor("b:" + businessID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	if idx, ok := shard.hashIndex[businessID]; ok {
		if sessionID, found := idx[hash]; found {
			return sessionID, true, nil
		}
	}
	return "", false, nil
}

// AppendSubmission implements HistoryStore
func (s *MemoryHistoryStore) AppendSubmission(ctx context.Context, customerHash string, rec SubmissionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	shard := s.shardFor("c:" + customerHash)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.submissions[customerHash] = append(shard.submissions[customerHash], rec)
	return nil
}

// Submissions implements HistoryStore
func (s *MemoryHistoryStore) Submissions(ctx context.Context, customerHash string, since time.Time) ([]SubmissionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shard := s.shardFor("c:" + customerHash)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	var out []SubmissionRecord
	for _, rec := range shard.submissions[customerHash] {
		if rec.Timestamp.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// AppendVoicePrint implements HistoryStore
func (s *MemoryHistoryStore) AppendVoicePrint(ctx context.Context, customerHash string, fp VoiceFingerprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	shard := s.shardFor("c:" + customerHash)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.voicePrints[customerHash] = append(shard.voicePrints[customerHash], fp)
	return nil
}

// VoicePrints implements HistoryStore
func (s *MemoryHistoryStore) VoicePrints(ctx context.Context, customerHash string) ([]VoiceFingerprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shard := s.shardFor("c:" + customerHash)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	prints := shard.voicePrints[customerHash]
	out := make([]VoiceFingerprint, len(prints))
	copy(out, prints)
	return out, nil
}

// Cleanup implements HistoryStore. Records older than maxAge are dropped and
// empty keys removed, so long-gone businesses and customers do not leak memory.
func (s *MemoryHistoryStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, shard := range s.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		shard.mu.Lock()

		for businessID, records := range shard.content {
			kept := records[:0]
			for _, rec := range records {
				if rec.Timestamp.Before(cutoff) {
					removed++
					if idx, ok := shard.hashIndex[businessID]; ok && idx[rec.Hash] == rec.SessionID {
						delete(idx, rec.Hash)
					}
					continue
				}
				kept = append(kept, rec)
			}
			if len(kept) == 0 {
				delete(shard.content, businessID)
				delete(shard.hashIndex, businessID)
			} else {
				shard.content[businessID] = kept
			}
		}

		for customerHash, records := range shard.submissions {
			kept := records[:0]
			for _, rec := range records {
				if rec.Timestamp.Before(cutoff) {
					removed++
					continue
				}
				kept = append(kept, rec)
			}
			if len(kept) == 0 {
				delete(shard.submissions, customerHash)
			} else {
				shard.submissions[customerHash] = kept
			}
		}

		for customerHash, prints := range shard.voicePrints {
			kept := prints[:0]
			for _, fp := range prints {
				if fp.Timestamp.Before(cutoff) {
					removed++
					continue
				}
				kept = append(kept, fp)
			}
			if len(kept) == 0 {
				delete(shard.voicePrints, customerHash)
			} else {
				shard.voicePrints[customerHash] = kept
			}
		}

		shard.mu.Unlock()
	}
	return removed, nil
}

// Stats implements HistoryStore
func (s *MemoryHistoryStore) Stats(ctx context.Context) (HistoryStats, error) {
	if err := ctx.Err(); err != nil {
		return HistoryStats{}, err
	}
	var stats HistoryStats
	for _, shard := range s.shards {
		shard.mu.RLock()
		stats.Businesses += len(shard.content)
		stats.Customers += len(shard.submissions)
		for customerHash := range shard.voicePrints {
			if _, ok := shard.submissions[customerHash]; !ok {
				stats.Customers++
			}
		}
		for _, idx := range shard.hashIndex {
			stats.ContentHashes += len(idx)
		}
		for _, subs := range shard.submissions {
			stats.Submissions += len(subs)
		}
		for _, prints := range shard.voicePrints {
			stats.VoicePrints += len(prints)
		}
		shard.mu.RUnlock()
	}
	return stats, nil
}
