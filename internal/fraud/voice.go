package fraud

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	voiceFrameSize     = 400 // 25ms at 16kHz
	voiceFeatureLen    = 12
	replayDistance     = 0.02
	inconsistencyLimit = 2.5
)

// VoiceDetector derives an acoustic fingerprint from raw audio and compares it
// against the customer's stored prints. It flags synthetic speech markers,
// replayed recordings and voices inconsistent with earlier sessions.
type VoiceDetector struct {
	cfg     DetectionConfig
	history HistoryStore
}

// NewVoiceDetector creates a voice pattern detector
func NewVoiceDetector(cfg DetectionConfig, history HistoryStore) *VoiceDetector {
	return &VoiceDetector{cfg: cfg, history: history}
}

// Type implements Detector
func (d *VoiceDetector) Type() CheckType { return CheckTypeVoicePattern }

// Analyze implements Detector
func (d *VoiceDetector) Analyze(ctx context.Context, session *SessionData) (*FraudCheck, error) {
	if len(session.AudioData) == 0 {
		// Text-only session. Reported at zero confidence so aggregation skips
		// it while the audit trail still shows the detector ran.
		return &FraudCheck{
			Type:        CheckTypeVoicePattern,
			Score:       0,
			Confidence:  0,
			Severity:    SeverityLow,
			Description: "no audio supplied",
			Evidence:    map[string]interface{}{"audio_bytes": 0},
		}, nil
	}

	samples, err := decodePCM16(session.AudioData)
	if err != nil {
		// Undecodable audio contributes nothing to the verdict, the failure is
		// recorded in evidence only.
		return &FraudCheck{
			Type:        CheckTypeVoicePattern,
			Score:       0,
			Confidence:  0,
			Severity:    SeverityLow,
			Description: "audio could not be decoded",
			Evidence:    map[string]interface{}{"decode_error": err.Error()},
		}, nil
	}

	features := extractVoiceFeatures(samples)
	snr := estimateSNR(samples)
	quality := audioQuality(snr, len(samples))

	check := &FraudCheck{
		Type:       CheckTypeVoicePattern,
		Severity:   SeverityLow,
		Confidence: 0.5 + 0.4*quality,
		Evidence: map[string]interface{}{
			"audio_bytes": len(session.AudioData),
			"snr_db":      snr,
			"quality":     quality,
		},
	}

	// Synthetic speech markers
	indicators := syntheticIndicators(samples, features)
	if len(indicators) >= 2 {
		check.Score = maxFloat(check.Score, 0.55+0.15*float64(len(indicators)-1))
		check.Severity = SeverityHigh
		check.Evidence["synthetic_indicators"] = indicators
		check.Flags = append(check.Flags, FraudFlag{
			Type:        "synthetic_voice",
			Description: fmt.Sprintf("%d synthetic speech markers: %v", len(indicators), indicators),
			Severity:    SeverityHigh,
		})
	} else if len(indicators) == 1 {
		check.Score = maxFloat(check.Score, 0.3)
		check.Evidence["synthetic_indicators"] = indicators
	}

	// Cross-session comparison against stored prints
	prints, histErr := d.history.VoicePrints(ctx, session.CustomerHash)
	if histErr == nil && len(prints) > 0 {
		minDist, meanDist := printDistances(features, prints)
		check.Evidence["min_print_distance"] = minDist
		check.Evidence["mean_print_distance"] = meanDist
		check.Evidence["stored_prints"] = len(prints)

		switch {
		case minDist < replayDistance:
			// Identical acoustics across sessions means a replayed recording
			check.Score = maxFloat(check.Score, 0.9)
			check.Severity = SeverityCritical
			check.Flags = append(check.Flags, FraudFlag{
				Type:        "replayed_audio",
				Description: "audio acoustically identical to a previous session",
				Severity:    SeverityCritical,
			})
		case meanDist > inconsistencyLimit && len(prints) >= 2:
			check.Score = maxFloat(check.Score, 0.6)
			if check.Severity.rank() < SeverityMedium.rank() {
				check.Severity = SeverityMedium
			}
			check.Flags = append(check.Flags, FraudFlag{
				Type:        "voice_inconsistency",
				Description: "voice differs markedly from this customer's earlier sessions",
				Severity:    SeverityMedium,
			})
		}
	} else if histErr != nil {
		check.Evidence["history_error"] = histErr.Error()
		check.Confidence = minFloat(check.Confidence, 0.4)
	}

	d.recordPrint(ctx, session, features)

	check.Score = clamp01(check.Score)
	check.Confidence = clamp01(check.Confidence)
	check.Description = fmt.Sprintf("voice analysis over %d samples", len(samples))
	return check, nil
}

// recordPrint stores the fingerprint for future consistency checks. Detached
// context on abort, same as the other history writes.
func (d *VoiceDetector) recordPrint(ctx context.Context, session *SessionData, features []float64) {
	writeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	}
	_ = d.history.AppendVoicePrint(writeCtx, session.CustomerHash, VoiceFingerprint{
		Features:  features,
		Timestamp: session.Timestamp,
	})
}

// decodePCM16 interprets audio as 16-bit little-endian PCM and normalizes to
// [-1,1].
func decodePCM16(data []byte) ([]float64, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("audio payload too short: %d bytes", len(data))
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("audio payload has odd length %d, expected 16-bit samples", len(data))
	}
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples, nil
}

// extractVoiceFeatures computes a fixed-length acoustic summary: per-frame
// energy statistics, zero-crossing statistics, silence structure and a coarse
// spectral shape proxy.
func extractVoiceFeatures(samples []float64) []float64 {
	frames := frameCount(len(samples))
	energies := make([]float64, frames)
	zcrs := make([]float64, frames)
	for f := 0; f < frames; f++ {
		start := f * voiceFrameSize
		end := minInt(start+voiceFrameSize, len(samples))
		energies[f] = frameEnergy(samples[start:end])
		zcrs[f] = zeroCrossingRate(samples[start:end])
	}

	eMean, eStd := meanStd(energies)
	zMean, zStd := meanStd(zcrs)

	features := make([]float64, voiceFeatureLen)
	features[0] = eMean
	features[1] = eStd
	features[2] = zMean
	features[3] = zStd
	features[4] = silenceRatio(energies)
	features[5] = peakEnergy(energies)
	features[6] = highFreqRatio(samples)
	features[7] = dynamicRange(samples)
	features[8] = energyEntropy(energies)
	features[9] = float64(longestSilenceRun(energies)) / float64(maxInt(frames, 1))
	features[10] = zcrRange(zcrs)
	features[11] = float64(frames)
	return features
}

// syntheticIndicators names the markers of generated or processed speech found
// in the signal.
func syntheticIndicators(samples []float64, features []float64) []string {
	var found []string

	// Natural pitch wanders; near-constant zero-crossing rate is a proxy for a
	// flat fundamental
	if features[2] > 0 && features[3]/features[2] < 0.05 {
		found = append(found, "uniform_pitch")
	}
	// Natural speech has micro-pauses between phrases
	if features[4] < 0.02 && features[11] > 20 {
		found = append(found, "missing_micro_pauses")
	}
	// Constant energy envelope
	if features[0] > 0 && features[1]/features[0] < 0.05 {
		found = append(found, "constant_energy")
	}
	// Vocoder output lacks natural high-frequency roll-off
	if features[6] > 0.45 {
		found = append(found, "flat_spectrum")
	}

	return found
}

// printDistances returns the minimum and mean Euclidean distance between the
// current feature vector and stored prints.
func printDistances(features []float64, prints []VoiceFingerprint) (minDist, meanDist float64) {
	minDist = math.Inf(1)
	total := 0.0
	counted := 0
	for _, p := range prints {
		if len(p.Features) != len(features) {
			continue
		}
		d := euclidean(features, p.Features)
		if d < minDist {
			minDist = d
		}
		total += d
		counted++
	}
	if counted == 0 {
		return 0, 0
	}
	return minDist, total / float64(counted)
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// estimateSNR treats the quietest quarter of frames as noise floor
func estimateSNR(samples []float64) float64 {
	frames := frameCount(len(samples))
	energies := make([]float64, frames)
	for f := 0; f < frames; f++ {
		start := f * voiceFrameSize
		end := minInt(start+voiceFrameSize, len(samples))
		energies[f] = frameEnergy(samples[start:end])
	}
	if frames < 4 {
		return 0
	}
	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)

	noise := meanOf(sorted[:frames/4])
	signal := meanOf(sorted[frames/4:])
	if noise <= 0 {
		noise = 1e-9
	}
	return 10 * math.Log10(signal/noise)
}

// audioQuality maps SNR and duration to [0,1]
func audioQuality(snrDB float64, sampleCount int) float64 {
	q := clamp01((snrDB - 5) / 25)
	if sampleCount < voiceFrameSize*8 {
		q *= 0.5
	}
	return q
}

func frameCount(samples int) int {
	if samples == 0 {
		return 0
	}
	return (samples + voiceFrameSize - 1) / voiceFrameSize
}

func frameEnergy(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range frame {
		sum += s * s
	}
	return sum / float64(len(frame))
}

func zeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}

func silenceRatio(energies []float64) float64 {
	if len(energies) == 0 {
		return 0
	}
	peak := peakEnergy(energies)
	if peak <= 0 {
		return 1
	}
	silent := 0
	for _, e := range energies {
		if e < peak*0.01 {
			silent++
		}
	}
	return float64(silent) / float64(len(energies))
}

func longestSilenceRun(energies []float64) int {
	peak := peakEnergy(energies)
	longest, run := 0, 0
	for _, e := range energies {
		if peak > 0 && e < peak*0.01 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

func peakEnergy(energies []float64) float64 {
	peak := 0.0
	for _, e := range energies {
		if e > peak {
			peak = e
		}
	}
	return peak
}

// highFreqRatio is the share of signal energy in sample-to-sample differences,
// a cheap stand-in for spectral tilt.
func highFreqRatio(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	total, high := 0.0, 0.0
	for i := 1; i < len(samples); i++ {
		total += samples[i] * samples[i]
		diff := samples[i] - samples[i-1]
		high += diff * diff
	}
	if total <= 0 {
		return 0
	}
	return clamp01(high / (4 * total))
}

func dynamicRange(samples []float64) float64 {
	lo, hi := 0.0, 0.0
	for _, s := range samples {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return hi - lo
}

// energyEntropy measures how evenly energy spreads over frames
func energyEntropy(energies []float64) float64 {
	total := 0.0
	for _, e := range energies {
		total += e
	}
	if total <= 0 {
		return 0
	}
	entropy := 0.0
	for _, e := range energies {
		p := e / total
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

func zcrRange(zcrs []float64) float64 {
	if len(zcrs) == 0 {
		return 0
	}
	lo, hi := zcrs[0], zcrs[0]
	for _, z := range zcrs {
		if z < lo {
			lo = z
		}
		if z > hi {
			hi = z
		}
	}
	return hi - lo
}

func meanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	mean = meanOf(vals)
	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))
	return mean, math.Sqrt(variance)
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
