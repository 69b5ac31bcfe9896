package fraud

import (
	"context"
	"fmt"
	"strings"
)

// contextScoreCap bounds the context check so weak contextual evidence can
// never push a session into rejection on its own.
const contextScoreCap = 0.6

// ContextDetector judges whether the transcript plausibly describes a visit to
// the declared business: vocabulary alignment, specificity and sentiment
// balance. Its signals are heuristic, so the score is capped.
type ContextDetector struct {
	cfg        DetectionConfig
	normalizer *Normalizer
}

// NewContextDetector creates a context authenticity detector
func NewContextDetector(cfg DetectionConfig, normalizer *Normalizer) *ContextDetector {
	return &ContextDetector{cfg: cfg, normalizer: normalizer}
}

// Type implements Detector
func (d *ContextDetector) Type() CheckType { return CheckTypeContextAuthenticity }

// Analyze implements Detector
func (d *ContextDetector) Analyze(ctx context.Context, session *SessionData) (*FraudCheck, error) {
	tokens := d.normalizer.Tokenize(session.Transcript)
	if len(tokens) == 0 {
		// Nothing to judge, leave the verdict to the other detectors
		return nil, nil
	}

	check := &FraudCheck{
		Type:       CheckTypeContextAuthenticity,
		Severity:   SeverityLow,
		Confidence: 0.6,
		Evidence: map[string]interface{}{
			"token_count":   len(tokens),
			"business_type": session.BusinessType,
		},
	}

	// Vocabulary alignment with the declared business type
	if vocab, known := businessVocab[strings.ToLower(session.BusinessType)]; known {
		domainHits, serviceHits := vocabularyHits(tokens, vocab)
		check.Evidence["domain_vocab_hits"] = domainHits
		check.Evidence["service_vocab_hits"] = serviceHits
		if domainHits == 0 && serviceHits == 0 && len(tokens) >= 8 {
			check.Score = maxFloat(check.Score, 0.45)
			check.Flags = append(check.Flags, FraudFlag{
				Type:        "vocabulary_mismatch",
				Description: fmt.Sprintf("transcript mentions nothing specific to a %s visit", session.BusinessType),
				Severity:    SeverityMedium,
			})
		}
	}

	// Extreme sentiment with no concrete detail is the shape of a bought review
	sentimentRatio := sentimentDensity(tokens)
	specificity := specificityScore(tokens)
	check.Evidence["sentiment_density"] = sentimentRatio
	check.Evidence["specificity"] = specificity
	if sentimentRatio >= 0.3 && specificity < 0.2 {
		check.Score = maxFloat(check.Score, 0.5)
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "extreme_unspecific_sentiment",
			Description: "strong sentiment words with almost no concrete detail",
			Severity:    SeverityMedium,
		})
	}

	// Very short all-sentiment transcripts
	if len(tokens) <= 5 && sentimentRatio >= 0.4 {
		check.Score = maxFloat(check.Score, 0.35)
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "minimal_content",
			Description: "transcript is a few sentiment words and nothing else",
			Severity:    SeverityLow,
		})
	}

	if check.Score > 0.3 {
		check.Severity = SeverityMedium
	}
	check.Score = minFloat(check.Score, contextScoreCap)
	check.Description = fmt.Sprintf("context authenticity for business type %q", session.BusinessType)
	return check, nil
}

// vocabularyHits counts tokens that belong to the business-type vocabulary and
// to the generic service vocabulary.
func vocabularyHits(tokens []string, domainVocab []string) (domainHits, serviceHits int) {
	domainSet := make(map[string]struct{}, len(domainVocab))
	for _, w := range domainVocab {
		domainSet[w] = struct{}{}
	}
	serviceSet := make(map[string]struct{}, len(serviceVocab))
	for _, w := range serviceVocab {
		serviceSet[w] = struct{}{}
	}
	for _, t := range tokens {
		if _, ok := domainSet[t]; ok {
			domainHits++
		}
		if _, ok := serviceSet[t]; ok {
			serviceHits++
		}
	}
	return domainHits, serviceHits
}

// sentimentDensity is the share of tokens that are strong-polarity words
func sentimentDensity(tokens []string) float64 {
	hits := 0
	for _, t := range tokens {
		if _, ok := sentimentWords[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// specificityScore estimates concrete detail: distinct non-sentiment tokens of
// four or more characters, plus any digits, relative to length.
func specificityScore(tokens []string) float64 {
	distinct := make(map[string]struct{})
	for _, t := range tokens {
		if _, sentiment := sentimentWords[t]; sentiment {
			continue
		}
		if len([]rune(t)) >= 4 || containsDigit(t) {
			distinct[t] = struct{}{}
		}
	}
	return float64(len(distinct)) / float64(len(tokens))
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
