package fraud

import (
	"fmt"
	"time"

	"github.com/kundrost/feedback-fraud/pkg/config"
)

// DetectionConfig is the strongly-typed engine configuration. Zero values are
// merged with defaults at engine construction, so callers only set what they
// want to override.
type DetectionConfig struct {
	// Similarity thresholds, all in [0,1]
	ExactMatchThreshold      float64 `json:"exact_match_threshold"`
	FuzzyMatchThreshold      float64 `json:"fuzzy_match_threshold"`
	SemanticMatchThreshold   float64 `json:"semantic_match_threshold"`
	StructuralMatchThreshold float64 `json:"structural_match_threshold"`

	// Aggregation weights per detector
	DuplicateContentWeight float64 `json:"duplicate_content_weight"`
	DevicePatternWeight    float64 `json:"device_pattern_weight"`
	TemporalPatternWeight  float64 `json:"temporal_pattern_weight"`
	VoicePatternWeight     float64 `json:"voice_pattern_weight"`
	ContextWeight          float64 `json:"context_weight"`

	// Temporal analysis
	SuspiciousTimeWindow  time.Duration `json:"suspicious_time_window"`
	MaxSubmissionsPerHour int           `json:"max_submissions_per_hour"`
	MinPatternOccurrences int           `json:"min_pattern_occurrences"`
	MaxTravelSpeedKmh     float64       `json:"max_travel_speed_kmh"`

	// Content analysis
	SuspiciousPatternThreshold int `json:"suspicious_pattern_threshold"`
	MaxFuzzyCandidates         int `json:"max_fuzzy_candidates"`

	// Verdict thresholds
	AcceptBelow float64 `json:"accept_below"`
	RejectAbove float64 `json:"reject_above"`

	// Posture
	ConservativeMode           bool    `json:"conservative_mode"`
	ConservativeModeMultiplier float64 `json:"conservative_mode_multiplier"`

	// Runtime
	DetectorTimeout  time.Duration `json:"detector_timeout"`
	HistoryRetention time.Duration `json:"history_retention"`
	SweepInterval    time.Duration `json:"sweep_interval"`
}

// DefaultConfig returns the engine defaults
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		ExactMatchThreshold:        0.95,
		FuzzyMatchThreshold:        0.85,
		SemanticMatchThreshold:     0.90,
		StructuralMatchThreshold:   0.80,
		DuplicateContentWeight:     0.30,
		DevicePatternWeight:        0.20,
		TemporalPatternWeight:      0.15,
		VoicePatternWeight:         0.25,
		ContextWeight:              0.10,
		SuspiciousTimeWindow:       time.Hour,
		MaxSubmissionsPerHour:      3,
		MinPatternOccurrences:      3,
		MaxTravelSpeedKmh:          900,
		SuspiciousPatternThreshold: 2,
		MaxFuzzyCandidates:         100,
		AcceptBelow:                0.3,
		RejectAbove:                0.8,
		ConservativeMode:           false,
		ConservativeModeMultiplier: 1.3,
		DetectorTimeout:            250 * time.Millisecond,
		HistoryRetention:           7 * 24 * time.Hour,
		SweepInterval:              10 * time.Minute,
	}
}

// FromAppConfig builds a DetectionConfig from the service-level fraud section
func FromAppConfig(fc config.FraudConfig) DetectionConfig {
	cfg := DetectionConfig{
		ExactMatchThreshold:        fc.ExactMatchThreshold,
		FuzzyMatchThreshold:        fc.FuzzyMatchThreshold,
		SemanticMatchThreshold:     fc.SemanticMatchThreshold,
		StructuralMatchThreshold:   fc.StructuralMatchThreshold,
		DuplicateContentWeight:     fc.DuplicateContentWeight,
		DevicePatternWeight:        fc.DevicePatternWeight,
		TemporalPatternWeight:      fc.TemporalPatternWeight,
		VoicePatternWeight:         fc.VoicePatternWeight,
		SuspiciousTimeWindow:       fc.SuspiciousTimeWindow,
		MaxSubmissionsPerHour:      fc.MaxSubmissionsPerHour,
		MinPatternOccurrences:      fc.MinPatternOccurrences,
		SuspiciousPatternThreshold: fc.SuspiciousPatternThreshold,
		ConservativeMode:           fc.ConservativeMode,
		ConservativeModeMultiplier: fc.ConservativeModeMultiplier,
		DetectorTimeout:            fc.DetectorTimeout,
		HistoryRetention:           fc.HistoryRetention,
	}
	return cfg.withDefaults()
}

// withDefaults fills zero values from DefaultConfig
func (c DetectionConfig) withDefaults() DetectionConfig {
	def := DefaultConfig()
	if c.ExactMatchThreshold == 0 {
		c.ExactMatchThreshold = def.ExactMatchThreshold
	}
	if c.FuzzyMatchThreshold == 0 {
		c.FuzzyMatchThreshold = def.FuzzyMatchThreshold
	}
	if c.SemanticMatchThreshold == 0 {
		c.SemanticMatchThreshold = def.SemanticMatchThreshold
	}
	if c.StructuralMatchThreshold == 0 {
		c.StructuralMatchThreshold = def.StructuralMatchThreshold
	}
	if c.DuplicateContentWeight == 0 {
		c.DuplicateContentWeight = def.DuplicateContentWeight
	}
	if c.DevicePatternWeight == 0 {
		c.DevicePatternWeight = def.DevicePatternWeight
	}
	if c.TemporalPatternWeight == 0 {
		c.TemporalPatternWeight = def.TemporalPatternWeight
	}
	if c.VoicePatternWeight == 0 {
		c.VoicePatternWeight = def.VoicePatternWeight
	}
	if c.ContextWeight == 0 {
		c.ContextWeight = def.ContextWeight
	}
	if c.SuspiciousTimeWindow == 0 {
		c.SuspiciousTimeWindow = def.SuspiciousTimeWindow
	}
	if c.MaxSubmissionsPerHour == 0 {
		c.MaxSubmissionsPerHour = def.MaxSubmissionsPerHour
	}
	if c.MinPatternOccurrences == 0 {
		c.MinPatternOccurrences = def.MinPatternOccurrences
	}
	if c.MaxTravelSpeedKmh == 0 {
		c.MaxTravelSpeedKmh = def.MaxTravelSpeedKmh
	}
	if c.SuspiciousPatternThreshold == 0 {
		c.SuspiciousPatternThreshold = def.SuspiciousPatternThreshold
	}
	if c.MaxFuzzyCandidates == 0 {
		c.MaxFuzzyCandidates = def.MaxFuzzyCandidates
	}
	if c.AcceptBelow == 0 {
		c.AcceptBelow = def.AcceptBelow
	}
	if c.RejectAbove == 0 {
		c.RejectAbove = def.RejectAbove
	}
	if c.ConservativeModeMultiplier == 0 {
		c.ConservativeModeMultiplier = def.ConservativeModeMultiplier
	}
	if c.DetectorTimeout == 0 {
		c.DetectorTimeout = def.DetectorTimeout
	}
	if c.HistoryRetention == 0 {
		c.HistoryRetention = def.HistoryRetention
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = def.SweepInterval
	}
	return c
}

// Validate checks configuration invariants
func (c DetectionConfig) Validate() error {
	for name, v := range map[string]float64{
		"exact_match_threshold":      c.ExactMatchThreshold,
		"fuzzy_match_threshold":      c.FuzzyMatchThreshold,
		"semantic_match_threshold":   c.SemanticMatchThreshold,
		"structural_match_threshold": c.StructuralMatchThreshold,
		"accept_below":               c.AcceptBelow,
		"reject_above":               c.RejectAbove,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", name, v)
		}
	}
	if c.AcceptBelow >= c.RejectAbove {
		return fmt.Errorf("accept_below (%v) must be less than reject_above (%v)", c.AcceptBelow, c.RejectAbove)
	}
	if c.ConservativeModeMultiplier < 1 {
		return fmt.Errorf("conservative_mode_multiplier must be at least 1, got %v", c.ConservativeModeMultiplier)
	}
	if c.MaxSubmissionsPerHour <= 0 {
		return fmt.Errorf("max_submissions_per_hour must be positive, got %d", c.MaxSubmissionsPerHour)
	}
	if c.DetectorTimeout <= 0 {
		return fmt.Errorf("detector_timeout must be positive, got %v", c.DetectorTimeout)
	}
	return nil
}

// weightFor maps a check type to its configured aggregation weight
func (c DetectionConfig) weightFor(t CheckType) float64 {
	switch t {
	case CheckTypeContentDuplicate:
		return c.DuplicateContentWeight
	case CheckTypeDevicePattern:
		return c.DevicePatternWeight
	case CheckTypeTemporalPattern:
		return c.TemporalPatternWeight
	case CheckTypeVoicePattern:
		return c.VoicePatternWeight
	case CheckTypeContextAuthenticity:
		return c.ContextWeight
	}
	return 0
}
