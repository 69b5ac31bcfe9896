package fraud

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

const earthRadiusKm = 6371.0

// TemporalDetector analyzes submission timing per customer hash: rate limits,
// suspiciously regular intervals and geographically impossible travel.
type TemporalDetector struct {
	cfg     DetectionConfig
	history HistoryStore
}

// NewTemporalDetector creates a temporal pattern detector
func NewTemporalDetector(cfg DetectionConfig, history HistoryStore) *TemporalDetector {
	return &TemporalDetector{cfg: cfg, history: history}
}

// Type implements Detector
func (d *TemporalDetector) Type() CheckType { return CheckTypeTemporalPattern }

// Analyze implements Detector
func (d *TemporalDetector) Analyze(ctx context.Context, session *SessionData) (*FraudCheck, error) {
	d.recordSubmission(ctx, session)

	since := session.Timestamp.Add(-d.cfg.SuspiciousTimeWindow)
	recent, err := d.history.Submissions(ctx, session.CustomerHash, since)
	if err != nil {
		return &FraudCheck{
			Type:        CheckTypeTemporalPattern,
			Score:       0,
			Confidence:  0.1,
			Severity:    SeverityLow,
			Description: "submission history unavailable",
			Evidence:    map[string]interface{}{"history_error": err.Error()},
		}, nil
	}

	check := &FraudCheck{
		Type:       CheckTypeTemporalPattern,
		Severity:   SeverityLow,
		Confidence: historyConfidence(len(recent)),
		Evidence: map[string]interface{}{
			"submission_count": len(recent),
			"window":           d.cfg.SuspiciousTimeWindow.String(),
		},
	}

	// Rate limiting: the window already includes the current submission
	if limit := d.cfg.MaxSubmissionsPerHour; len(recent) > limit {
		multiple := float64(len(recent)) / float64(limit)
		score := minFloat(1, 0.5+0.2*(multiple-1))
		check.Score = maxFloat(check.Score, score)
		check.Severity = rateSeverity(multiple)
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "rate_limit_exceeded",
			Description: fmt.Sprintf("%d submissions within %s, limit is %d", len(recent), d.cfg.SuspiciousTimeWindow, limit),
			Severity:    check.Severity,
		})
	}

	// Regular-interval detection over the broader retention window
	all, err := d.history.Submissions(ctx, session.CustomerHash, session.Timestamp.Add(-d.cfg.HistoryRetention))
	if err == nil && len(all) > d.cfg.MinPatternOccurrences {
		if cv, regular := intervalRegularity(all, d.cfg.MinPatternOccurrences); regular {
			check.Score = maxFloat(check.Score, 0.7)
			if check.Severity.rank() < SeverityMedium.rank() {
				check.Severity = SeverityMedium
			}
			check.Evidence["interval_cv"] = cv
			check.Flags = append(check.Flags, FraudFlag{
				Type:        "regular_intervals",
				Description: fmt.Sprintf("%d submissions at near-constant intervals", len(all)),
				Severity:    SeverityMedium,
			})
		}
	}

	// Geographic impossibility against the most recent prior located submission
	if session.Location != nil {
		if speed, from, ok := d.impossibleTravel(all, session); ok {
			check.Score = maxFloat(check.Score, 0.95)
			check.Severity = SeverityHigh
			check.Evidence["travel_speed_kmh"] = speed
			check.Evidence["previous_location_id"] = from
			check.Flags = append(check.Flags, FraudFlag{
				Type:        "impossible_travel",
				Description: fmt.Sprintf("implied travel speed %.0f km/h between locations", speed),
				Severity:    SeverityHigh,
			})
		}
	}

	check.Description = fmt.Sprintf("temporal analysis over %d submissions", len(recent))
	check.Score = clamp01(check.Score)
	return check, nil
}

// recordSubmission appends the current submission before evaluation so the
// rate window counts it. Detached context on abort, the event is already
// derived and cheap to finish.
func (d *TemporalDetector) recordSubmission(ctx context.Context, session *SessionData) {
	writeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	}
	_ = d.history.AppendSubmission(writeCtx, session.CustomerHash, SubmissionRecord{
		SessionID:  session.ID,
		LocationID: session.LocationID,
		Location:   session.Location,
		Timestamp:  session.Timestamp,
	})
}

// intervalRegularity reports the coefficient of variation of inter-submission
// intervals and whether it indicates scripted behavior.
func intervalRegularity(subs []SubmissionRecord, minOccurrences int) (float64, bool) {
	if len(subs) < minOccurrences+1 {
		return 0, false
	}
	times := make([]time.Time, len(subs))
	for i, s := range subs {
		times[i] = s.Timestamp
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return 0, false
	}

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))

	cv := math.Sqrt(variance) / mean
	return cv, cv < 0.15
}

// impossibleTravel checks the latest prior located submission against the
// current one.
func (d *TemporalDetector) impossibleTravel(subs []SubmissionRecord, session *SessionData) (speedKmh float64, fromLocation string, impossible bool) {
	var prev *SubmissionRecord
	for i := range subs {
		s := &subs[i]
		if s.SessionID == session.ID || s.Location == nil {
			continue
		}
		if !s.Timestamp.After(session.Timestamp) && (prev == nil || s.Timestamp.After(prev.Timestamp)) {
			prev = s
		}
	}
	if prev == nil {
		return 0, "", false
	}

	elapsed := session.Timestamp.Sub(prev.Timestamp).Hours()
	distance := haversineKm(prev.Location.Latitude, prev.Location.Longitude,
		session.Location.Latitude, session.Location.Longitude)
	if distance < 1 {
		return 0, "", false
	}
	if elapsed <= 0 {
		// Two distant locations at the same instant
		return math.Inf(1), prev.LocationID, true
	}

	speed := distance / elapsed
	return speed, prev.LocationID, speed > d.cfg.MaxTravelSpeedKmh
}

// haversineKm returns the great-circle distance between two coordinates
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// historyConfidence scales with how much history backs the temporal verdict
func historyConfidence(n int) float64 {
	return minFloat(0.9, 0.3+0.15*float64(n))
}

func rateSeverity(multiple float64) Severity {
	switch {
	case multiple >= 3:
		return SeverityCritical
	case multiple >= 2:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
