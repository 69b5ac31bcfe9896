package fraud

import (
	"context"
	"time"
)

// Detector analyzes one session and produces a fraud check. A nil check with a
// nil error means the detector had insufficient data and is excluded from
// aggregation rather than treated as zero risk.
type Detector interface {
	Type() CheckType
	Analyze(ctx context.Context, session *SessionData) (*FraudCheck, error)
}

// HistoryStore holds rolling per-customer and per-business fingerprints and
// counters. Implementations must support concurrent reads with serialized,
// atomic appends per key; different keys must never contend with each other.
type HistoryStore interface {
	// Content history, scoped per business
	AppendContent(ctx context.Context, businessID string, rec ContentRecord) error
	RecentContent(ctx context.Context, businessID string, since time.Time, limit int) ([]ContentRecord, error)
	LookupContentHash(ctx context.Context, businessID, hash string) (sessionID string, found bool, err error)

	// Submission history, scoped per customer hash
	AppendSubmission(ctx context.Context, customerHash string, rec SubmissionRecord) error
	Submissions(ctx context.Context, customerHash string, since time.Time) ([]SubmissionRecord, error)

	// Voice fingerprints, scoped per customer hash
	AppendVoicePrint(ctx context.Context, customerHash string, fp VoiceFingerprint) error
	VoicePrints(ctx context.Context, customerHash string) ([]VoiceFingerprint, error)

	// Maintenance
	Cleanup(ctx context.Context, maxAge time.Duration) (removed int, err error)
	Stats(ctx context.Context) (HistoryStats, error)
}

// ResultRepository persists final verdicts for audit and manual review
type ResultRepository interface {
	SaveResult(ctx context.Context, session *SessionData, result *FraudAnalysisResult) error
	GetResultBySession(ctx context.Context, sessionID string) (*StoredResult, error)
	ListPendingReview(ctx context.Context, limit, offset int) ([]*StoredResult, error)
}

// AlertPublisher notifies downstream review tooling about reject verdicts
type AlertPublisher interface {
	PublishHighRisk(ctx context.Context, result *FraudAnalysisResult) error
}
