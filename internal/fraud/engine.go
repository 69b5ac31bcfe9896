package fraud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kundrost/feedback-fraud/pkg/logger"
	"github.com/kundrost/feedback-fraud/pkg/validation"
)

// ErrInvalidSession is returned when the submitted session fails validation
var ErrInvalidSession = errors.New("invalid session data")

// Engine runs all detectors concurrently over a session and aggregates their
// checks into a verdict. Detectors that exceed their deadline are excluded
// from the verdict rather than delaying it.
type Engine struct {
	cfg        DetectionConfig
	detectors  []Detector
	aggregator *RiskAggregator
	history    HistoryStore
	repo       ResultRepository
	alerts     AlertPublisher

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// Option configures optional engine collaborators
type Option func(*Engine)

// WithResultRepository enables verdict persistence
func WithResultRepository(repo ResultRepository) Option {
	return func(e *Engine) { e.repo = repo }
}

// WithAlertPublisher enables reject alerts
func WithAlertPublisher(alerts AlertPublisher) Option {
	return func(e *Engine) { e.alerts = alerts }
}

// WithDetectors replaces the default detector set
func WithDetectors(detectors ...Detector) Option {
	return func(e *Engine) { e.detectors = detectors }
}

// NewEngine creates an engine with the standard five detectors wired against
// the given history store.
func NewEngine(cfg DetectionConfig, history HistoryStore, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detection config: %w", err)
	}

	normalizer := NewNormalizer(nil)
	e := &Engine{
		cfg: cfg,
		detectors: []Detector{
			NewContentDetector(cfg, history, normalizer),
			NewDeviceDetector(cfg),
			NewTemporalDetector(cfg, history),
			NewContextDetector(cfg, normalizer),
			NewVoiceDetector(cfg, history),
		},
		aggregator: NewRiskAggregator(cfg),
		history:    history,
		sweepStop:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.sweepLoop()
	return e, nil
}

type detectorOutcome struct {
	detector CheckType
	check    *FraudCheck
	err      error
	timedOut bool
}

// AnalyzeSession runs the full detection pipeline for one session
func (e *Engine) AnalyzeSession(ctx context.Context, session *SessionData) (*FraudAnalysisResult, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if err := validation.ValidateStruct(session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if session.Timestamp.IsZero() {
		session.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	log := logger.WithContext(ctx).With(zap.String("session_id", session.ID))

	outcomes := make(chan detectorOutcome, len(e.detectors))
	for _, det := range e.detectors {
		go e.runDetector(ctx, det, session, outcomes)
	}

	checks := make([]*FraudCheck, 0, len(e.detectors))
	var lateFlags []FraudFlag
	for range e.detectors {
		out := <-outcomes
		switch {
		case out.timedOut:
			log.Warn("detector timed out, excluding from verdict",
				zap.String("detector", string(out.detector)),
				zap.Duration("timeout", e.cfg.DetectorTimeout))
			lateFlags = append(lateFlags, FraudFlag{
				Type:        "detector_timeout",
				Description: fmt.Sprintf("%s detector exceeded %s and was excluded", out.detector, e.cfg.DetectorTimeout),
				Severity:    SeverityLow,
			})
		case out.err != nil:
			log.Error("detector failed, excluding from verdict",
				zap.String("detector", string(out.detector)),
				zap.Error(out.err))
			detectorErrors.WithLabelValues(string(out.detector)).Inc()
			lateFlags = append(lateFlags, FraudFlag{
				Type:        "detector_error",
				Description: fmt.Sprintf("%s detector failed and was excluded", out.detector),
				Severity:    SeverityLow,
			})
		case out.check != nil:
			checks = append(checks, out.check)
		}
	}

	result := e.aggregator.Aggregate(session.ID, checks, start.UTC())
	result.Flags = append(result.Flags, lateFlags...)
	sortFlags(result.Flags)
	result.Duration = time.Since(start)

	analysesTotal.WithLabelValues(string(result.Recommendation)).Inc()
	analysisDuration.Observe(result.Duration.Seconds())
	riskScores.Observe(result.OverallRiskScore)

	log.Info("session analyzed",
		zap.Float64("risk_score", result.OverallRiskScore),
		zap.String("recommendation", string(result.Recommendation)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("flags", len(result.Flags)),
		zap.Duration("duration", result.Duration))

	e.persistAndAlert(ctx, session, result, log)
	return result, nil
}

// runDetector enforces the per-detector deadline. The wrapper goroutine keeps
// running after a timeout so collection never blocks on a stuck detector.
func (e *Engine) runDetector(ctx context.Context, det Detector, session *SessionData, outcomes chan<- detectorOutcome) {
	detCtx, cancel := context.WithTimeout(ctx, e.cfg.DetectorTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan detectorOutcome, 1)
	go func() {
		check, err := det.Analyze(detCtx, session)
		done <- detectorOutcome{detector: det.Type(), check: check, err: err}
	}()

	select {
	case out := <-done:
		detectorDuration.WithLabelValues(string(det.Type())).Observe(time.Since(start).Seconds())
		if out.err != nil && (errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, context.Canceled)) {
			out = detectorOutcome{detector: det.Type(), timedOut: true}
			detectorTimeouts.WithLabelValues(string(det.Type())).Inc()
		}
		outcomes <- out
	case <-detCtx.Done():
		detectorTimeouts.WithLabelValues(string(det.Type())).Inc()
		outcomes <- detectorOutcome{detector: det.Type(), timedOut: true}
	}
}

// persistAndAlert stores the verdict and publishes reject alerts. Both are
// best effort, the verdict has already been decided.
func (e *Engine) persistAndAlert(ctx context.Context, session *SessionData, result *FraudAnalysisResult, log *zap.Logger) {
	writeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	}

	if e.repo != nil {
		if err := e.repo.SaveResult(writeCtx, session, result); err != nil {
			log.Error("failed to persist verdict", zap.Error(err))
		}
	}
	if e.alerts != nil && result.Recommendation == RecommendationReject {
		if err := e.alerts.PublishHighRisk(writeCtx, result); err != nil {
			log.Error("failed to publish reject alert", zap.Error(err))
		}
	}
}

// Stats reports history sizes and the active configuration
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	historyStats, err := e.history.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	return &Stats{History: historyStats, Config: e.cfg}, nil
}

// CleanupHistory removes history records older than the retention window
func (e *Engine) CleanupHistory(ctx context.Context) (int, error) {
	return e.history.Cleanup(ctx, e.cfg.HistoryRetention)
}

// sweepLoop periodically expires old history in the background
func (e *Engine) sweepLoop() {
	defer close(e.sweepDone)
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			removed, err := e.history.Cleanup(ctx, e.cfg.HistoryRetention)
			cancel()
			if err != nil {
				logger.Warn("history sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("history sweep done", zap.Int("removed", removed))
			}
		case <-e.sweepStop:
			return
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.sweepStop)
		<-e.sweepDone
	})
}
