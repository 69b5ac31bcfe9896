package fraud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceNoFingerprintExcluded(t *testing.T) {
	detector := NewDeviceDetector(DefaultConfig())

	check, err := detector.Analyze(context.Background(), sessionWithTranscript("s1", "helt vanlig text"))
	require.NoError(t, err)
	assert.Nil(t, check)
}

func TestDeviceHeadlessBrowser(t *testing.T) {
	detector := NewDeviceDetector(DefaultConfig())
	session := sessionWithTranscript("s1", "Bra service, trevlig personal")
	session.DeviceFingerprint = &DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/119.0",
		ScreenResolution: "1920x1080",
		Platform:         "Linux x86_64",
		CookieEnabled:    true,
	}

	check, err := detector.Analyze(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.Equal(t, 0.9, check.Score)
	assert.Equal(t, 0.9, check.Confidence)
	assert.Equal(t, SeverityHigh, check.Severity)
	require.NotEmpty(t, check.Flags)
	assert.Equal(t, "automation_signature", check.Flags[0].Type)
	assert.Equal(t, "headlesschrome", check.Evidence["automation_signature"])
}

func TestDeviceBotSignatureAnchored(t *testing.T) {
	detector := NewDeviceDetector(DefaultConfig())

	// "bot" inside a vendor name must not trigger the automation signature
	clean := sessionWithTranscript("s1", "Personalen var trevlig och maten var bra")
	clean.DeviceFingerprint = &DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (Linux; Android 10; CUBOT X30) Chrome/119.0 Mobile",
		ScreenResolution: "1080x2340",
		Platform:         "Android",
		Language:         "sv-SE",
		CookieEnabled:    true,
		TouchSupport:     true,
	}
	check, err := detector.Analyze(context.Background(), clean)
	require.NoError(t, err)
	require.NotNil(t, check)
	assert.Empty(t, check.Flags)

	// A crawler declaring itself stays flagged
	crawler := sessionWithTranscript("s2", "Personalen var trevlig och maten var bra")
	crawler.DeviceFingerprint = &DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		ScreenResolution: "1920x1080",
		Platform:         "Linux x86_64",
		CookieEnabled:    true,
	}
	check, err = detector.Analyze(context.Background(), crawler)
	require.NoError(t, err)
	require.NotNil(t, check)
	require.NotEmpty(t, check.Flags)
	assert.Equal(t, "automation_signature", check.Flags[0].Type)
}

func TestDeviceInconsistentFingerprint(t *testing.T) {
	detector := NewDeviceDetector(DefaultConfig())
	session := sessionWithTranscript("s1", "allt fungerade fint")
	session.DeviceFingerprint = &DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/119.0",
		ScreenResolution: "390x844",
		Platform:         "iPhone",
		CookieEnabled:    true,
		TouchSupport:     false,
	}

	check, err := detector.Analyze(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.Greater(t, check.Score, 0.0)
	assert.Equal(t, SeverityMedium, check.Severity)

	inconsistencies, ok := check.Evidence["inconsistencies"].([]string)
	require.True(t, ok)
	assert.Contains(t, inconsistencies, "mobile platform without touch support")
	assert.Contains(t, inconsistencies, "desktop user agent on mobile platform")
}

func TestDeviceLanguageMismatch(t *testing.T) {
	detector := NewDeviceDetector(DefaultConfig())
	session := sessionWithTranscript("s1",
		"Personalen var trevlig och maten var mycket bra, vi kommer tillbaka")
	session.DeviceFingerprint = &DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Safari/604.1",
		ScreenResolution: "390x844",
		Platform:         "iPhone",
		Language:         "en-US",
		CookieEnabled:    true,
		TouchSupport:     true,
	}

	check, err := detector.Analyze(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, check)

	inconsistencies, ok := check.Evidence["inconsistencies"].([]string)
	require.True(t, ok)
	require.Len(t, inconsistencies, 1)
	assert.Contains(t, inconsistencies[0], "transcript language")
}

func TestDeviceCleanFingerprint(t *testing.T) {
	detector := NewDeviceDetector(DefaultConfig())
	session := sessionWithTranscript("s1", "Personalen var trevlig och maten var bra")
	session.DeviceFingerprint = &DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Safari/604.1",
		ScreenResolution: "390x844",
		Platform:         "iPhone",
		Language:         "sv-SE",
		CookieEnabled:    true,
		TouchSupport:     true,
	}

	check, err := detector.Analyze(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, check)

	assert.Equal(t, 0.0, check.Score)
	assert.Empty(t, check.Flags)
}
