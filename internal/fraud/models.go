package fraud

import (
	"time"

	"github.com/google/uuid"
)

// CheckType identifies which detector produced a FraudCheck
type CheckType string

const (
	CheckTypeContentDuplicate    CheckType = "content_duplicate"
	CheckTypeDevicePattern       CheckType = "device_pattern"
	CheckTypeTemporalPattern     CheckType = "temporal_pattern"
	CheckTypeContextAuthenticity CheckType = "context_authenticity"
	CheckTypeVoicePattern        CheckType = "voice_pattern"
)

// Severity represents how serious a finding is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for sorting, higher is more severe
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Recommendation is the terminal verdict category
type Recommendation string

const (
	RecommendationAccept Recommendation = "accept"
	RecommendationReview Recommendation = "review"
	RecommendationReject Recommendation = "reject"
)

// DeviceFingerprint holds derived client metadata. It carries no raw PII.
type DeviceFingerprint struct {
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
	CookieEnabled    bool   `json:"cookie_enabled"`
	TouchSupport     bool   `json:"touch_support"`
}

// GeoPoint is a resolved business location used for travel-plausibility checks
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// SessionData is the input to one analysis. It is consumed exactly once and
// never persisted by the engine; only derived hashes and fingerprints enter
// the history store.
type SessionData struct {
	ID                string             `json:"id" validate:"required"`
	Transcript        string             `json:"transcript"`
	CustomerHash      string             `json:"customer_hash" validate:"required"`
	DeviceFingerprint *DeviceFingerprint `json:"device_fingerprint,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
	BusinessID        string             `json:"business_id" validate:"required"`
	BusinessType      string             `json:"business_type,omitempty"`
	LocationID        string             `json:"location_id,omitempty"`
	Location          *GeoPoint          `json:"location,omitempty"`
	PurchaseAmount    float64            `json:"purchase_amount" validate:"gte=0"`
	AudioData         []byte             `json:"audio_data,omitempty"`
}

// VoiceFingerprint is a fixed-length feature vector derived from audio,
// stored per customer hash for cross-session consistency checks.
type VoiceFingerprint struct {
	Features  []float64 `json:"features"`
	Timestamp time.Time `json:"timestamp"`
}

// FraudFlag is a flattened human-readable finding
type FraudFlag struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// FraudCheck is the output of a single detector
type FraudCheck struct {
	Type        CheckType              `json:"type"`
	Score       float64                `json:"score"`
	Confidence  float64                `json:"confidence"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	Evidence    map[string]interface{} `json:"evidence,omitempty"`
	Flags       []FraudFlag            `json:"flags,omitempty"`
}

// FraudAnalysisResult is the final verdict for one session
type FraudAnalysisResult struct {
	SessionID        string         `json:"session_id"`
	OverallRiskScore float64        `json:"overall_risk_score"`
	Recommendation   Recommendation `json:"recommendation"`
	Confidence       float64        `json:"confidence"`
	Flags            []FraudFlag    `json:"flags"`
	Checks           []FraudCheck   `json:"checks"`
	AnalyzedAt       time.Time      `json:"analyzed_at"`
	Duration         time.Duration  `json:"duration_ns"`
}

// StoredResult is the audit row shape persisted for manual review tooling
type StoredResult struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	SessionID      string         `json:"session_id" db:"session_id"`
	BusinessID     string         `json:"business_id" db:"business_id"`
	CustomerHash   string         `json:"customer_hash" db:"customer_hash"`
	RiskScore      float64        `json:"risk_score" db:"risk_score"`
	Recommendation Recommendation `json:"recommendation" db:"recommendation"`
	Confidence     float64        `json:"confidence" db:"confidence"`
	Flags          []FraudFlag    `json:"flags" db:"flags"`
	Checks         []FraudCheck   `json:"checks" db:"checks"`
	AnalyzedAt     time.Time      `json:"analyzed_at" db:"analyzed_at"`
}

// ContentRecord is the derived representation of a past submission kept for
// duplicate comparison: canonical text, its hash and token shape, never the
// raw transcript.
type ContentRecord struct {
	SessionID    string    `json:"session_id"`
	Hash         string    `json:"hash"`
	Normalized   string    `json:"normalized"`
	TokenLengths []int     `json:"token_lengths"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubmissionRecord is one prior submission event for a customer hash
type SubmissionRecord struct {
	SessionID  string    `json:"session_id"`
	LocationID string    `json:"location_id,omitempty"`
	Location   *GeoPoint `json:"location,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HistoryStats reports history store sizes for external monitoring
type HistoryStats struct {
	Businesses    int `json:"businesses"`
	Customers     int `json:"customers"`
	ContentHashes int `json:"content_hashes"`
	Submissions   int `json:"submissions"`
	VoicePrints   int `json:"voice_prints"`
}

// Stats is the introspection payload returned by the engine
type Stats struct {
	History HistoryStats    `json:"history"`
	Config  DetectionConfig `json:"config"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
