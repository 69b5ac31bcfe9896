package fraud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ContentDetector finds exact, fuzzy, semantic and structural duplicates of a
// transcript within the business's recent submission history.
type ContentDetector struct {
	cfg        DetectionConfig
	history    HistoryStore
	normalizer *Normalizer
}

// NewContentDetector creates a content duplicate detector
func NewContentDetector(cfg DetectionConfig, history HistoryStore, normalizer *Normalizer) *ContentDetector {
	return &ContentDetector{cfg: cfg, history: history, normalizer: normalizer}
}

// Type implements Detector
func (d *ContentDetector) Type() CheckType { return CheckTypeContentDuplicate }

// Analyze implements Detector
func (d *ContentDetector) Analyze(ctx context.Context, session *SessionData) (*FraudCheck, error) {
	tokens := d.normalizer.Tokenize(session.Transcript)
	normalized := strings.Join(tokens, " ")
	hash := contentHash(normalized)

	if len([]rune(normalized)) < 10 {
		// Too little text to compare meaningfully. Record the hash anyway so
		// repeated empty-ish submissions still build history.
		d.recordContent(ctx, session, normalized, tokens, hash)
		return &FraudCheck{
			Type:        CheckTypeContentDuplicate,
			Score:       0.2,
			Confidence:  0.3,
			Severity:    SeverityLow,
			Description: "transcript too short for duplicate analysis",
			Evidence: map[string]interface{}{
				"insufficient_content": true,
				"normalized_length":    len([]rune(normalized)),
			},
		}, nil
	}

	since := session.Timestamp.Add(-d.cfg.HistoryRetention)
	candidates, err := d.history.RecentContent(ctx, session.BusinessID, since, d.cfg.MaxFuzzyCandidates)
	if err != nil {
		// History unavailable: degrade to no-history mode
		d.recordContent(ctx, session, normalized, tokens, hash)
		return &FraudCheck{
			Type:        CheckTypeContentDuplicate,
			Score:       0,
			Confidence:  0.1,
			Severity:    SeverityLow,
			Description: "content history unavailable",
			Evidence:    map[string]interface{}{"history_error": err.Error()},
		}, nil
	}

	var (
		exactMatches      int
		fuzzyMatches      int
		semanticMatches   int
		structuralMatches int
		bestSimilarity    float64
		bestSessionID     string
		score             float64
	)

	// Exact: O(1) hash index lookup scoped to the business
	if matchID, found, lookupErr := d.history.LookupContentHash(ctx, session.BusinessID, hash); lookupErr == nil && found && matchID != session.ID {
		exactMatches++
		score = 1.0
		bestSimilarity = 1.0
		bestSessionID = matchID
	}

	shape := tokenLengths(tokens)
	tokenSet := expandedTokenSet(tokens)

	for _, cand := range candidates {
		if cand.SessionID == session.ID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Fuzzy: normalized edit distance, skipping candidates whose length
		// difference alone puts them below the threshold. Similarity at or
		// above the exact threshold counts as an exact-level duplicate.
		if sim, ok := fuzzySimilarity(normalized, cand.Normalized, d.cfg.FuzzyMatchThreshold); ok {
			if sim >= d.cfg.ExactMatchThreshold {
				exactMatches++
			} else {
				fuzzyMatches++
			}
			score = maxFloat(score, sim)
			if sim > bestSimilarity {
				bestSimilarity, bestSessionID = sim, cand.SessionID
			}
		}

		// Semantic: token-set Jaccard after synonym expansion
		candTokens := d.normalizer.Tokenize(cand.Normalized)
		if sim := jaccard(tokenSet, expandedTokenSet(candTokens)); sim >= d.cfg.SemanticMatchThreshold {
			semanticMatches++
			score = maxFloat(score, sim)
			if sim > bestSimilarity {
				bestSimilarity, bestSessionID = sim, cand.SessionID
			}
		}

		// Structural: token-length shape, catches templated submissions
		if sim := shapeSimilarity(shape, cand.TokenLengths); sim >= d.cfg.StructuralMatchThreshold {
			structuralMatches++
			score = maxFloat(score, sim*0.9)
			if sim > bestSimilarity {
				bestSimilarity, bestSessionID = sim, cand.SessionID
			}
		}
	}

	// Template phrasing is counted independently of similarity
	templateMatches := countTemplateMatches(normalized)
	if templateMatches >= d.cfg.SuspiciousPatternThreshold {
		score = maxFloat(score, 0.7)
	} else if templateMatches > 0 {
		score = maxFloat(score, 0.3)
	}

	confidence := corpusConfidence(len(candidates))
	if exactMatches > 0 {
		confidence = 0.95
	}

	check := &FraudCheck{
		Type:       CheckTypeContentDuplicate,
		Score:      clamp01(score),
		Confidence: clamp01(confidence),
		Severity:   contentSeverity(score, exactMatches),
		Description: fmt.Sprintf("duplicate analysis against %d prior submissions",
			len(candidates)),
		Evidence: map[string]interface{}{
			"exact_matches":      exactMatches,
			"fuzzy_matches":      fuzzyMatches,
			"semantic_matches":   semanticMatches,
			"structural_matches": structuralMatches,
			"template_matches":   templateMatches,
			"best_similarity":    bestSimilarity,
			"corpus_size":        len(candidates),
		},
	}
	if bestSessionID != "" {
		check.Evidence["best_match_session_id"] = bestSessionID
	}

	if exactMatches > 0 {
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "exact_duplicate",
			Description: fmt.Sprintf("transcript identical or near-identical to prior session %s", bestSessionID),
			Severity:    SeverityCritical,
		})
	} else if fuzzyMatches > 0 || semanticMatches > 0 {
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "near_duplicate",
			Description: fmt.Sprintf("transcript %.0f%% similar to prior session %s", bestSimilarity*100, bestSessionID),
			Severity:    SeverityHigh,
		})
	} else if structuralMatches > 0 {
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "templated_structure",
			Description: "transcript shape matches prior submissions",
			Severity:    SeverityMedium,
		})
	}
	if templateMatches >= d.cfg.SuspiciousPatternThreshold {
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "generic_template",
			Description: fmt.Sprintf("%d known generic phrasings in transcript", templateMatches),
			Severity:    SeverityMedium,
		})
	}

	d.recordContent(ctx, session, normalized, tokens, hash)
	return check, nil
}

// recordContent appends the derived representation to history. Uses a
// detached context so an aborted session still contributes cheap-to-finish
// history writes.
func (d *ContentDetector) recordContent(ctx context.Context, session *SessionData, normalized string, tokens []string, hash string) {
	writeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	}
	_ = d.history.AppendContent(writeCtx, session.BusinessID, ContentRecord{
		SessionID:    session.ID,
		Hash:         hash,
		Normalized:   normalized,
		TokenLengths: tokenLengths(tokens),
		Timestamp:    session.Timestamp,
	})
}

func contentHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// fuzzySimilarity returns normalized Levenshtein similarity when it can reach
// the threshold; the length pre-check bounds cost on dissimilar candidates.
func fuzzySimilarity(a, b string, threshold float64) (float64, bool) {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0, false
	}
	longest := maxInt(la, lb)
	if float64(absInt(la-lb))/float64(longest) > 1-threshold {
		return 0, false
	}
	dist := levenshtein([]rune(a), []rune(b))
	sim := 1 - float64(dist)/float64(longest)
	if sim < threshold {
		return 0, false
	}
	return sim, true
}

// levenshtein computes edit distance with a two-row DP
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(minInt(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// expandedTokenSet maps tokens through the synonym table into a set
func expandedTokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[canonicalToken(t)] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// shapeSimilarity compares token-length sequences. Positions differing by at
// most one character count as matching; the ratio is taken over the longer
// sequence so padding cannot inflate it.
func shapeSimilarity(a, b []int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := minInt(len(a), len(b))
	matches := 0
	for i := 0; i < n; i++ {
		if absInt(a[i]-b[i]) <= 1 {
			matches++
		}
	}
	return float64(matches) / float64(maxInt(len(a), len(b)))
}

func countTemplateMatches(normalized string) int {
	count := 0
	for _, p := range templatePatterns {
		if p.MatchString(normalized) {
			count++
		}
	}
	return count
}

// corpusConfidence scales confidence by how much history backs the verdict
func corpusConfidence(corpusSize int) float64 {
	if corpusSize == 0 {
		return 0.2
	}
	return minFloat(0.9, 0.4+0.05*float64(corpusSize))
}

func contentSeverity(score float64, exactMatches int) Severity {
	switch {
	case exactMatches > 0:
		return SeverityCritical
	case score >= 0.85:
		return SeverityHigh
	case score >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
