package fraud

import (
	"sort"
	"time"
)

// RiskAggregator combines detector checks into the final verdict
type RiskAggregator struct {
	cfg DetectionConfig
}

// NewRiskAggregator creates a risk aggregator
func NewRiskAggregator(cfg DetectionConfig) *RiskAggregator {
	return &RiskAggregator{cfg: cfg}
}

// Aggregate computes the overall risk score as a weighted mean over
// contributing checks. Checks with zero confidence carry no weight but stay in
// the result for the audit trail. The aggregate confidence never exceeds the
// least confident contributing check.
func (a *RiskAggregator) Aggregate(sessionID string, checks []*FraudCheck, analyzedAt time.Time) *FraudAnalysisResult {
	result := &FraudAnalysisResult{
		SessionID:  sessionID,
		AnalyzedAt: analyzedAt,
	}

	var (
		weightedSum   float64
		weightTotal   float64
		minConfidence = 1.0
		contributing  int
	)

	for _, check := range checks {
		if check == nil {
			continue
		}
		result.Checks = append(result.Checks, *check)
		result.Flags = append(result.Flags, check.Flags...)

		if check.Confidence <= 0 {
			continue
		}
		w := a.cfg.weightFor(check.Type)
		if w <= 0 {
			continue
		}
		weightedSum += check.Score * w
		weightTotal += w
		contributing++
		if check.Confidence < minConfidence {
			minConfidence = check.Confidence
		}
	}

	if contributing == 0 {
		// Nothing to judge on. Flag for manual review rather than guessing.
		result.OverallRiskScore = 0
		result.Confidence = 0
		result.Recommendation = RecommendationReview
		result.Flags = append(result.Flags, FraudFlag{
			Type:        "no_detector_coverage",
			Description: "no detector produced a usable signal",
			Severity:    SeverityLow,
		})
		sortFlags(result.Flags)
		return result
	}

	score := weightedSum / weightTotal
	if a.cfg.ConservativeMode {
		score *= a.cfg.ConservativeModeMultiplier
	}
	result.OverallRiskScore = clamp01(score)
	result.Confidence = minConfidence
	result.Recommendation = a.recommend(result.OverallRiskScore)

	sortFlags(result.Flags)
	return result
}

func (a *RiskAggregator) recommend(score float64) Recommendation {
	switch {
	case score < a.cfg.AcceptBelow:
		return RecommendationAccept
	case score > a.cfg.RejectAbove:
		return RecommendationReject
	default:
		return RecommendationReview
	}
}

// sortFlags orders flags most severe first, stable within the same severity
func sortFlags(flags []FraudFlag) {
	sort.SliceStable(flags, func(i, j int) bool {
		return flags[i].Severity.rank() > flags[j].Severity.rank()
	})
}
