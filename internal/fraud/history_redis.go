package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kundrost/feedback-fraud/pkg/redis"
)

// Key layout, all under the fraud: prefix:
//
//	fraud:content:<businessID>   sorted set of content records, scored by time
//	fraud:hashidx:<businessID>   hash of content hash -> first session ID
//	fraud:hashexp:<businessID>   sorted set of content hashes, scored by time
//	fraud:subs:<customerHash>    sorted set of submission records
//	fraud:voice:<customerHash>   sorted set of voice fingerprints
//	fraud:businesses             set of known business IDs
//	fraud:customers              set of known customer hashes
const (
	keyContent    = "fraud:content:%s"
	keyHashIndex  = "fraud:hashidx:%s"
	keyHashExpiry = "fraud:hashexp:%s"
	keySubs       = "fraud:subs:%s"
	keyVoice      = "fraud:voice:%s"
	keyBusinesses = "fraud:businesses"
	keyCustomers  = "fraud:customers"
)

// RedisHistoryStore is the HistoryStore backing multi-instance deployments,
// built on time-scored sorted sets.
type RedisHistoryStore struct {
	client *redis.Client
}

// NewRedisHistoryStore creates a redis-backed history store
func NewRedisHistoryStore(client *redis.Client) *RedisHistoryStore {
	return &RedisHistoryStore{client: client}
}

// AppendContent implements HistoryStore
func (s *RedisHistoryStore) AppendContent(ctx context.Context, businessID string, rec ContentRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal content record: %w", err)
	}
	if err := s.client.AppendScored(ctx, fmt.Sprintf(keyContent, businessID), string(payload), rec.Timestamp); err != nil {
		return fmt.Errorf("append content record: %w", err)
	}
	// First writer wins, matching exact-duplicate attribution
	if err := s.client.HSetNX(ctx, fmt.Sprintf(keyHashIndex, businessID), rec.Hash, rec.SessionID).Err(); err != nil {
		return fmt.Errorf("index content hash: %w", err)
	}
	if err := s.client.AppendScored(ctx, fmt.Sprintf(keyHashExpiry, businessID), rec.Hash, rec.Timestamp); err != nil {
		return fmt.Errorf("track content hash age: %w", err)
	}
	return s.client.SAdd(ctx, keyBusinesses, businessID).Err()
}

// RecentContent implements HistoryStore
func (s *RedisHistoryStore) RecentContent(ctx context.Context, businessID string, since time.Time, limit int) ([]ContentRecord, error) {
	members, err := s.client.RangeSince(ctx, fmt.Sprintf(keyContent, businessID), since)
	if err != nil {
		return nil, fmt.Errorf("read content history: %w", err)
	}
	// Newest first, capped at limit
	out := make([]ContentRecord, 0, minInt(len(members), limit))
	for i := len(members) - 1; i >= 0 && len(out) < limit; i-- {
		var rec ContentRecord
		if err := json.Unmarshal([]byte(members[i]), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// LookupContentHash implements HistoryStore
func (s *RedisHistoryStore) LookupContentHash(ctx context.Context, businessID, hash string) (string, bool, error) {
	sessionID, err := s.client.HGet(ctx, fmt.Sprintf(keyHashIndex, businessID), hash).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup content hash: %w", err)
	}
	return sessionID, true, nil
}

// AppendSubmission implements HistoryStore
func (s *RedisHistoryStore) AppendSubmission(ctx context.Context, customerHash string, rec SubmissionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal submission record: %w", err)
	}
	if err := s.client.AppendScored(ctx, fmt.Sprintf(keySubs, customerHash), string(payload), rec.Timestamp); err != nil {
		return fmt.Errorf("append submission record: %w", err)
	}
	return s.client.SAdd(ctx, keyCustomers, customerHash).Err()
}

// Submissions implements HistoryStore
func (s *RedisHistoryStore) Submissions(ctx context.Context, customerHash string, since time.Time) ([]SubmissionRecord, error) {
	members, err := s.client.RangeSince(ctx, fmt.Sprintf(keySubs, customerHash), since)
	if err != nil {
		return nil, fmt.Errorf("read submission history: %w", err)
	}
	out := make([]SubmissionRecord, 0, len(members))
	for _, m := range members {
		var rec SubmissionRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// AppendVoicePrint implements HistoryStore
func (s *RedisHistoryStore) AppendVoicePrint(ctx context.Context, customerHash string, fp VoiceFingerprint) error {
	payload, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal voice fingerprint: %w", err)
	}
	if err := s.client.AppendScored(ctx, fmt.Sprintf(keyVoice, customerHash), string(payload), fp.Timestamp); err != nil {
		return fmt.Errorf("append voice fingerprint: %w", err)
	}
	return s.client.SAdd(ctx, keyCustomers, customerHash).Err()
}

// VoicePrints implements HistoryStore
func (s *RedisHistoryStore) VoicePrints(ctx context.Context, customerHash string) ([]VoiceFingerprint, error) {
	members, err := s.client.RangeSince(ctx, fmt.Sprintf(keyVoice, customerHash), time.Unix(0, 0))
	if err != nil {
		return nil, fmt.Errorf("read voice fingerprints: %w", err)
	}
	out := make([]VoiceFingerprint, 0, len(members))
	for _, m := range members {
		var fp VoiceFingerprint
		if err := json.Unmarshal([]byte(m), &fp); err != nil {
			continue
		}
		out = append(out, fp)
	}
	return out, nil
}

// Cleanup implements HistoryStore
func (s *RedisHistoryStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	businesses, err := s.client.SMembers(ctx, keyBusinesses).Result()
	if err != nil {
		return 0, fmt.Errorf("list businesses: %w", err)
	}
	for _, businessID := range businesses {
		contentKey := fmt.Sprintf(keyContent, businessID)
		expiryKey := fmt.Sprintf(keyHashExpiry, businessID)

		before, err := s.client.ZCard(ctx, contentKey).Result()
		if err != nil {
			return removed, fmt.Errorf("size content history: %w", err)
		}

		// Drop expired hashes from the index before trimming the tracking set
		expired, err := s.client.ZRangeByScore(ctx, expiryKey, &goredis.ZRangeBy{
			Min: "-inf", Max: fmt.Sprintf("(%d", cutoff.UnixNano()),
		}).Result()
		if err != nil {
			return removed, fmt.Errorf("list expired hashes: %w", err)
		}
		if len(expired) > 0 {
			if err := s.client.HDel(ctx, fmt.Sprintf(keyHashIndex, businessID), expired...).Err(); err != nil {
				return removed, fmt.Errorf("drop expired hashes: %w", err)
			}
		}

		if err := s.client.TrimBefore(ctx, contentKey, cutoff); err != nil {
			return removed, fmt.Errorf("trim content history: %w", err)
		}
		if err := s.client.TrimBefore(ctx, expiryKey, cutoff); err != nil {
			return removed, fmt.Errorf("trim hash ages: %w", err)
		}

		after, err := s.client.ZCard(ctx, contentKey).Result()
		if err != nil {
			return removed, fmt.Errorf("size content history: %w", err)
		}
		removed += int(before - after)
		if after == 0 {
			if err := s.client.SRem(ctx, keyBusinesses, businessID).Err(); err != nil {
				return removed, fmt.Errorf("unregister business: %w", err)
			}
		}
	}

	customers, err := s.client.SMembers(ctx, keyCustomers).Result()
	if err != nil {
		return removed, fmt.Errorf("list customers: %w", err)
	}
	for _, customerHash := range customers {
		remaining := int64(0)
		for _, key := range []string{fmt.Sprintf(keySubs, customerHash), fmt.Sprintf(keyVoice, customerHash)} {
			before, err := s.client.ZCard(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("size customer history: %w", err)
			}
			if err := s.client.TrimBefore(ctx, key, cutoff); err != nil {
				return removed, fmt.Errorf("trim customer history: %w", err)
			}
			after, err := s.client.ZCard(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("size customer history: %w", err)
			}
			removed += int(before - after)
			remaining += after
		}
		if remaining == 0 {
			if err := s.client.SRem(ctx, keyCustomers, customerHash).Err(); err != nil {
				return removed, fmt.Errorf("unregister customer: %w", err)
			}
		}
	}

	return removed, nil
}

// Stats implements HistoryStore
func (s *RedisHistoryStore) Stats(ctx context.Context) (HistoryStats, error) {
	var stats HistoryStats

	businesses, err := s.client.SMembers(ctx, keyBusinesses).Result()
	if err != nil {
		return stats, fmt.Errorf("list businesses: %w", err)
	}
	stats.Businesses = len(businesses)
	for _, businessID := range businesses {
		hashes, err := s.client.HLen(ctx, fmt.Sprintf(keyHashIndex, businessID)).Result()
		if err != nil {
			return stats, fmt.Errorf("size hash index: %w", err)
		}
		stats.ContentHashes += int(hashes)
	}

	customers, err := s.client.SMembers(ctx, keyCustomers).Result()
	if err != nil {
		return stats, fmt.Errorf("list customers: %w", err)
	}
	stats.Customers = len(customers)
	for _, customerHash := range customers {
		subs, err := s.client.ZCard(ctx, fmt.Sprintf(keySubs, customerHash)).Result()
		if err != nil {
			return stats, fmt.Errorf("size submission history: %w", err)
		}
		stats.Submissions += int(subs)
		prints, err := s.client.ZCard(ctx, fmt.Sprintf(keyVoice, customerHash)).Result()
		if err != nil {
			return stats, fmt.Errorf("size voice history: %w", err)
		}
		stats.VoicePrints += int(prints)
	}

	return stats, nil
}
