package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheck(t CheckType, score, confidence float64) *FraudCheck {
	return &FraudCheck{Type: t, Score: score, Confidence: confidence, Severity: SeverityLow}
}

func TestAggregateWeightedMean(t *testing.T) {
	cfg := DefaultConfig()
	agg := NewRiskAggregator(cfg)

	result := agg.Aggregate("s1", []*FraudCheck{
		newCheck(CheckTypeContentDuplicate, 1.0, 0.9),
		newCheck(CheckTypeDevicePattern, 0.0, 0.8),
	}, time.Now())

	// (1.0*0.30 + 0.0*0.20) / 0.50
	assert.InDelta(t, 0.6, result.OverallRiskScore, 0.001)
	assert.Equal(t, RecommendationReview, result.Recommendation)
}

func TestAggregateThresholds(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	low := agg.Aggregate("s1", []*FraudCheck{newCheck(CheckTypeContentDuplicate, 0.1, 0.9)}, time.Now())
	assert.Equal(t, RecommendationAccept, low.Recommendation)

	mid := agg.Aggregate("s2", []*FraudCheck{newCheck(CheckTypeContentDuplicate, 0.5, 0.9)}, time.Now())
	assert.Equal(t, RecommendationReview, mid.Recommendation)

	high := agg.Aggregate("s3", []*FraudCheck{newCheck(CheckTypeContentDuplicate, 0.95, 0.9)}, time.Now())
	assert.Equal(t, RecommendationReject, high.Recommendation)
}

func TestAggregateZeroConfidenceExcludedButAudited(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	result := agg.Aggregate("s1", []*FraudCheck{
		newCheck(CheckTypeContentDuplicate, 0.2, 0.9),
		newCheck(CheckTypeVoicePattern, 0.0, 0.0),
	}, time.Now())

	// Voice carries no weight, the verdict equals the content score
	assert.InDelta(t, 0.2, result.OverallRiskScore, 0.001)
	// but it stays visible in the audit trail
	assert.Len(t, result.Checks, 2)
	// and never drags down the aggregate confidence
	assert.Equal(t, 0.9, result.Confidence)
}

func TestAggregateNilChecksSkipped(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	result := agg.Aggregate("s1", []*FraudCheck{
		nil,
		newCheck(CheckTypeDevicePattern, 0.4, 0.7),
	}, time.Now())

	assert.InDelta(t, 0.4, result.OverallRiskScore, 0.001)
	assert.Len(t, result.Checks, 1)
}

func TestAggregateNoCoverageGoesToReview(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	result := agg.Aggregate("s1", []*FraudCheck{nil, newCheck(CheckTypeVoicePattern, 0, 0)}, time.Now())

	assert.Equal(t, RecommendationReview, result.Recommendation)
	assert.Equal(t, 0.0, result.Confidence)
	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "no_detector_coverage", result.Flags[0].Type)
}

func TestAggregateConfidenceIsMinimum(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	result := agg.Aggregate("s1", []*FraudCheck{
		newCheck(CheckTypeContentDuplicate, 0.5, 0.9),
		newCheck(CheckTypeTemporalPattern, 0.5, 0.3),
		newCheck(CheckTypeDevicePattern, 0.5, 0.7),
	}, time.Now())

	assert.Equal(t, 0.3, result.Confidence)
}

func TestAggregateConservativeModeRaisesScore(t *testing.T) {
	base := DefaultConfig()
	conservative := DefaultConfig()
	conservative.ConservativeMode = true

	checks := func() []*FraudCheck {
		return []*FraudCheck{newCheck(CheckTypeContentDuplicate, 0.5, 0.9)}
	}

	normal := NewRiskAggregator(base).Aggregate("s1", checks(), time.Now())
	raised := NewRiskAggregator(conservative).Aggregate("s1", checks(), time.Now())

	assert.InDelta(t, 0.5, normal.OverallRiskScore, 0.001)
	assert.InDelta(t, 0.65, raised.OverallRiskScore, 0.001)
	assert.GreaterOrEqual(t, raised.OverallRiskScore, normal.OverallRiskScore)
}

func TestAggregateScoreClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConservativeMode = true
	agg := NewRiskAggregator(cfg)

	result := agg.Aggregate("s1", []*FraudCheck{newCheck(CheckTypeContentDuplicate, 1.0, 0.9)}, time.Now())
	assert.Equal(t, 1.0, result.OverallRiskScore)
}

func TestAggregateMonotoneInDetectorScore(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	prev := -1.0
	for _, s := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		result := agg.Aggregate("s1", []*FraudCheck{
			newCheck(CheckTypeContentDuplicate, s, 0.9),
			newCheck(CheckTypeDevicePattern, 0.3, 0.8),
		}, time.Now())
		assert.GreaterOrEqual(t, result.OverallRiskScore, prev)
		prev = result.OverallRiskScore
	}
}

func TestAggregateFlagsSortedBySeverity(t *testing.T) {
	agg := NewRiskAggregator(DefaultConfig())

	contentCheck := newCheck(CheckTypeContentDuplicate, 0.9, 0.9)
	contentCheck.Flags = []FraudFlag{
		{Type: "low_finding", Severity: SeverityLow},
		{Type: "critical_finding", Severity: SeverityCritical},
	}
	deviceCheck := newCheck(CheckTypeDevicePattern, 0.5, 0.8)
	deviceCheck.Flags = []FraudFlag{{Type: "medium_finding", Severity: SeverityMedium}}

	result := agg.Aggregate("s1", []*FraudCheck{contentCheck, deviceCheck}, time.Now())

	require.Len(t, result.Flags, 3)
	assert.Equal(t, "critical_finding", result.Flags[0].Type)
	assert.Equal(t, "medium_finding", result.Flags[1].Type)
	assert.Equal(t, "low_finding", result.Flags[2].Type)
}
