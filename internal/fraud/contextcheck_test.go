package fraud

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextSession(transcript, businessType string) *SessionData {
	s := sessionWithTranscript("s1", transcript)
	s.BusinessType = businessType
	return s
}

func TestContextEmptyTranscriptExcluded(t *testing.T) {
	detector := NewContextDetector(DefaultConfig(), NewNormalizer(nil))

	check, err := detector.Analyze(context.Background(), contextSession("", "restaurant"))
	require.NoError(t, err)
	assert.Nil(t, check)
}

func TestContextVocabularyMismatch(t *testing.T) {
	detector := NewContextDetector(DefaultConfig(), NewNormalizer(nil))

	// A restaurant review that never mentions anything restaurant- or
	// service-related
	check, err := detector.Analyze(context.Background(), contextSession(
		"Bilen startade direkt efter reparationen och motorn later mycket battre nu an innan",
		"restaurant"))
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.GreaterOrEqual(t, check.Score, 0.45)
	require.NotEmpty(t, check.Flags)
	assert.Equal(t, "vocabulary_mismatch", check.Flags[0].Type)
}

func TestContextExtremeUnspecificSentiment(t *testing.T) {
	detector := NewContextDetector(DefaultConfig(), NewNormalizer(nil))

	check, err := detector.Analyze(context.Background(), contextSession(
		"Bra bra toppen kanon bast underbar fantastisk perfekt", "retail"))
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.GreaterOrEqual(t, check.Score, 0.5)
	var flagged bool
	for _, f := range check.Flags {
		if f.Type == "extreme_unspecific_sentiment" {
			flagged = true
		}
	}
	assert.True(t, flagged, "expected an extreme_unspecific_sentiment flag")
}

func TestContextPlausibleReviewScoresLow(t *testing.T) {
	detector := NewContextDetector(DefaultConfig(), NewNormalizer(nil))

	check, err := detector.Analyze(context.Background(), contextSession(
		"Maten kom snabbt, lunchen smakade utmarkt och personalen hjalpte oss valja efterratt",
		"restaurant"))
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.Equal(t, 0.0, check.Score)
	assert.Empty(t, check.Flags)
}

func TestContextScoreNeverExceedsCap(t *testing.T) {
	detector := NewContextDetector(DefaultConfig(), NewNormalizer(nil))

	// Pile every contextual problem into one session
	transcript := strings.Repeat("underbar fantastisk toppen ", 4) + "bilen motorn dacket bromsen"
	check, err := detector.Analyze(context.Background(), contextSession(transcript, "salon"))
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.LessOrEqual(t, check.Score, contextScoreCap)
}

func TestContextCapBelowRejectEvenConservative(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConservativeMode = true

	// Even at the cap and scaled by the conservative multiplier, a context
	// finding alone stays under the reject threshold.
	assert.Less(t, contextScoreCap*cfg.ConservativeModeMultiplier, cfg.RejectAbove)
}

func TestSpecificityScore(t *testing.T) {
	n := NewNormalizer(nil)

	generic := specificityScore(n.Tokenize("bra bra bra toppen"))
	specific := specificityScore(n.Tokenize("lunchen smakade utmarkt och kycklingen var perfekt stekt"))
	assert.Less(t, generic, specific)
}
