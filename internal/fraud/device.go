package fraud

import (
	"context"
	"fmt"
	"strings"
)

// automationSignatures are user agent substrings of headless browsers and
// scripting clients, matched lowercase.
var automationSignatures = []string{
	"headlesschrome", "phantomjs", "selenium", "puppeteer", "playwright",
	"webdriver", "electron", "python-requests", "python-urllib", "curl/",
	"wget/", "okhttp", "scrapy", "bot/", "robot", "spider", "crawler",
}

// DeviceDetector inspects the client fingerprint for automation signatures
// and feature combinations implausible for the claimed platform.
type DeviceDetector struct {
	cfg DetectionConfig
}

// NewDeviceDetector creates a device pattern detector
func NewDeviceDetector(cfg DetectionConfig) *DeviceDetector {
	return &DeviceDetector{cfg: cfg}
}

// Type implements Detector
func (d *DeviceDetector) Type() CheckType { return CheckTypeDevicePattern }

// Analyze implements Detector
func (d *DeviceDetector) Analyze(ctx context.Context, session *SessionData) (*FraudCheck, error) {
	fp := session.DeviceFingerprint
	if fp == nil {
		// No fingerprint supplied, nothing to judge
		return nil, nil
	}

	check := &FraudCheck{
		Type:       CheckTypeDevicePattern,
		Confidence: 0.8,
		Severity:   SeverityLow,
		Evidence:   map[string]interface{}{},
	}

	ua := strings.ToLower(fp.UserAgent)
	for _, sig := range automationSignatures {
		if strings.Contains(ua, sig) {
			check.Score = maxFloat(check.Score, 0.9)
			check.Confidence = 0.9
			check.Severity = SeverityHigh
			check.Evidence["automation_signature"] = sig
			check.Flags = append(check.Flags, FraudFlag{
				Type:        "automation_signature",
				Description: fmt.Sprintf("user agent matches automation tool %q", sig),
				Severity:    SeverityHigh,
			})
			break
		}
	}

	inconsistencies := deviceInconsistencies(fp, session.Transcript)
	if len(inconsistencies) > 0 {
		check.Score = maxFloat(check.Score, minFloat(0.6, 0.25*float64(len(inconsistencies))))
		if check.Severity.rank() < SeverityMedium.rank() {
			check.Severity = SeverityMedium
		}
		check.Evidence["inconsistencies"] = inconsistencies
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "device_inconsistency",
			Description: strings.Join(inconsistencies, "; "),
			Severity:    SeverityMedium,
		})
	}

	check.Description = fmt.Sprintf("device fingerprint analysis, %d inconsistencies", len(inconsistencies))
	check.Score = clamp01(check.Score)
	return check, nil
}

// deviceInconsistencies returns feature combinations implausible for the
// claimed platform.
func deviceInconsistencies(fp *DeviceFingerprint, transcript string) []string {
	var found []string

	ua := strings.ToLower(fp.UserAgent)
	platform := strings.ToLower(fp.Platform)
	mobilePlatform := strings.Contains(platform, "iphone") || strings.Contains(platform, "android") ||
		strings.Contains(platform, "ipad")

	if mobilePlatform && !fp.TouchSupport {
		found = append(found, "mobile platform without touch support")
	}
	if !fp.CookieEnabled && fp.TouchSupport {
		found = append(found, "cookies disabled on a touch-capable client")
	}
	if mobilePlatform && (strings.Contains(ua, "windows nt") || strings.Contains(ua, "x11; linux")) {
		found = append(found, "desktop user agent on mobile platform")
	}
	if strings.Contains(platform, "win") && strings.Contains(ua, "iphone") {
		found = append(found, "mobile user agent on desktop platform")
	}
	if fp.ScreenResolution == "" && fp.UserAgent != "" {
		found = append(found, "missing screen resolution")
	}

	// Declared client language vs. transcript language
	if lang := detectTranscriptLanguage(transcript); lang != "" && fp.Language != "" {
		if !strings.HasPrefix(strings.ToLower(fp.Language), lang) {
			found = append(found, fmt.Sprintf("transcript language %q does not match client language %q", lang, fp.Language))
		}
	}

	return found
}

// detectTranscriptLanguage makes a coarse sv/en guess from characteristic
// words. Returns "" when the transcript gives no clear signal.
func detectTranscriptLanguage(transcript string) string {
	lower := strings.ToLower(transcript)
	svHits, enHits := 0, 0
	for _, w := range []string{"och", "att", "inte", "är", "på", "för", "med", "bra", "mycket", "personal"} {
		if strings.Contains(lower, w) {
			svHits++
		}
	}
	for _, w := range []string{"the", "and", "was", "were", "this", "that", "with", "very", "really"} {
		if strings.Contains(lower, " "+w+" ") {
			enHits++
		}
	}
	switch {
	case svHits >= 2 && svHits > enHits:
		return "sv"
	case enHits >= 2 && enHits > svHits:
		return "en"
	}
	return ""
}
