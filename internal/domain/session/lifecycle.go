// Package session owns the recording-session state machine: one session
// moves recording -> completed -> analyzing -> analyzed, with the upload
// and analysis each happening at most once.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cadencelab/cadence/internal/domain/analysis"
	"github.com/cadencelab/cadence/internal/domain/audio"
	"github.com/cadencelab/cadence/internal/domain/model"
)

// Sessions is the session-store contract the lifecycle consumes.
type Sessions interface {
	Create(ctx context.Context, s model.RecordingSession) error
	Get(ctx context.Context, id string) (model.RecordingSession, error)
	Update(ctx context.Context, id string, patch model.SessionPatch) error
	SaveAnalysis(ctx context.Context, rec model.AnalysisRecord) error
}

// Blobs is the blob-store contract the lifecycle consumes.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
}

// Classifier is the inference contract. Classify returns the decoded
// result union plus the raw payload as received, wrapped errors carry
// ErrAudioRejected or ErrClassifierUnavailable.
type Classifier interface {
	Classify(ctx context.Context, audioBytes []byte, contentType string) (analysis.RawResult, []byte, error)
}

// Lifecycle coordinates one session's record -> upload -> analyze flow.
// Failures leave the session in its last successful state; every failed
// transition is a safe retry point.
type Lifecycle struct {
	sessions   Sessions
	blobs      Blobs
	classifier Classifier
	normalizer *analysis.Normalizer
	guard      *flightGuard

	waveformBuckets int
	now             func() time.Time
}

// Option applies a configuration option to the Lifecycle.
type Option func(*Lifecycle)

// WithWaveformBuckets sets the length of the amplitude envelope computed
// for analyzed recordings.
func WithWaveformBuckets(n int) Option {
	return func(l *Lifecycle) {
		if n > 0 {
			l.waveformBuckets = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Lifecycle over the given collaborators.
func New(sessions Sessions, blobs Blobs, classifier Classifier, normalizer *analysis.Normalizer, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		sessions:        sessions,
		blobs:           blobs,
		classifier:      classifier,
		normalizer:      normalizer,
		guard:           newFlightGuard(),
		waveformBuckets: 96,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.normalizer == nil {
		l.normalizer = analysis.NewNormalizer(nil)
	}
	return l
}

// BlobKey is the deterministic blob location for a session's audio.
func BlobKey(ownerID, sessionID string) string {
	return fmt.Sprintf("%s/%s.wav", ownerID, sessionID)
}

// Create starts a new session in the recording state.
func (l *Lifecycle) Create(ctx context.Context, ownerID, promptID string) (model.RecordingSession, error) {
	s := model.RecordingSession{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		PromptID:  promptID,
		Status:    model.StatusRecording,
		CreatedAt: l.now().UTC(),
	}
	if err := l.sessions.Create(ctx, s); err != nil {
		return model.RecordingSession{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Upload persists the finished recording and moves the session to
// completed. It runs at most once per completed recording: the flight
// guard rejects a concurrent duplicate, and a session already past
// recording rejects the precondition. On failure the guard is released so
// the caller can retry, and the session stays in recording.
func (l *Lifecycle) Upload(ctx context.Context, sessionID string, rec audio.Recording) (model.RecordingSession, error) {
	s, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.RecordingSession{}, fmt.Errorf("get session: %w", err)
	}
	if s.Status != model.StatusRecording {
		return model.RecordingSession{}, fmt.Errorf("session %s: %w", sessionID, ErrAlreadyUploaded)
	}

	if !l.guard.acquire("upload:" + sessionID) {
		return model.RecordingSession{}, fmt.Errorf("session %s: %w", sessionID, ErrUploadInFlight)
	}
	defer l.guard.release("upload:" + sessionID)

	// Re-check under the guard: a concurrent call may have completed the
	// upload between the precondition read and the claim.
	s, err = l.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.RecordingSession{}, fmt.Errorf("get session: %w", err)
	}
	if s.Status != model.StatusRecording {
		return model.RecordingSession{}, fmt.Errorf("session %s: %w", sessionID, ErrAlreadyUploaded)
	}

	duration := rec.Duration
	if duration == 0 && audio.IsWAV(rec.Bytes) {
		if info, err := audio.DecodeInfo(rec.Bytes); err == nil {
			duration = info.Duration
		}
	}

	key := BlobKey(s.OwnerID, s.ID)
	if err := l.blobs.Put(ctx, key, rec.Bytes, rec.MIMEType); err != nil {
		return model.RecordingSession{}, fmt.Errorf("store recording: %w", err)
	}

	now := l.now().UTC()
	status := model.StatusCompleted
	patch := model.SessionPatch{
		Status:      &status,
		CompletedAt: &now,
		BlobKey:     &key,
		Duration:    &duration,
	}
	if err := l.sessions.Update(ctx, sessionID, patch); err != nil {
		return model.RecordingSession{}, fmt.Errorf("complete session: %w", err)
	}
	patch.Apply(&s)
	return s, nil
}

// Analyze sends the stored audio to the classifier and writes the
// analysis record. The session is analyzing only for the duration of the
// call; any failure reverts it to completed so the caller can retry.
// A concurrent duplicate invocation is rejected while one is in flight.
func (l *Lifecycle) Analyze(ctx context.Context, sessionID string) (model.AnalysisRecord, error) {
	s, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("get session: %w", err)
	}
	switch s.Status {
	case model.StatusRecording:
		return model.AnalysisRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotUploaded)
	case model.StatusAnalyzing:
		return model.AnalysisRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrAnalysisInFlight)
	case model.StatusAnalyzed:
		return model.AnalysisRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrAlreadyAnalyzed)
	}

	if !l.guard.acquire("analyze:" + sessionID) {
		return model.AnalysisRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrAnalysisInFlight)
	}
	defer l.guard.release("analyze:" + sessionID)

	if err := l.transition(ctx, sessionID, s.Status, model.StatusAnalyzing); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("mark analyzing: %w", err)
	}

	rec, err := l.runAnalysis(ctx, s)
	if err != nil {
		// Not stuck in analyzing: the session reverts to its last
		// successful state and the caller may retry.
		if revertErr := l.transition(ctx, sessionID, model.StatusAnalyzing, model.StatusCompleted); revertErr != nil {
			return model.AnalysisRecord{}, fmt.Errorf("%w (revert failed: %w)", err, revertErr)
		}
		return model.AnalysisRecord{}, err
	}

	if err := l.transition(ctx, sessionID, model.StatusAnalyzing, model.StatusAnalyzed); err != nil {
		// The record is saved but the status write failed. Revert here too
		// so the session is not wedged in analyzing; SaveAnalysis upserts,
		// so the retry rewrites the record safely.
		err = fmt.Errorf("mark analyzed: %w", err)
		if revertErr := l.transition(ctx, sessionID, model.StatusAnalyzing, model.StatusCompleted); revertErr != nil {
			return model.AnalysisRecord{}, fmt.Errorf("%w (revert failed: %w)", err, revertErr)
		}
		return model.AnalysisRecord{}, err
	}
	return rec, nil
}

func (l *Lifecycle) runAnalysis(ctx context.Context, s model.RecordingSession) (model.AnalysisRecord, error) {
	audioBytes, contentType, err := l.blobs.Get(ctx, s.BlobKey)
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("fetch recording: %w", err)
	}

	raw, payload, err := l.classifier.Classify(ctx, audioBytes, contentType)
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("classify: %w", err)
	}

	normalized := l.normalizer.Normalize(raw)

	var waveform []float64
	if audio.IsWAV(audioBytes) {
		if samples, _, err := audio.DecodeSamples(audioBytes); err == nil {
			waveform = audio.Summarize(samples, l.waveformBuckets)
		}
	}

	rec := model.AnalysisRecord{
		SessionID:   s.ID,
		OwnerID:     s.OwnerID,
		Percentages: normalized.Percentages,
		TotalUnits:  normalized.TotalUnits,
		Segments:    raw.Segments,
		Raw:         payload,
		Waveform:    waveform,
		AnalyzedAt:  l.now().UTC(),
	}
	if err := l.sessions.SaveAnalysis(ctx, rec); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("save analysis: %w", err)
	}
	return rec, nil
}

// transition is the single status-mutation point for the analyze flow.
// The guard serializes callers per session, so from is authoritative.
func (l *Lifecycle) transition(ctx context.Context, sessionID string, from, to model.Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("session %s: invalid transition %s -> %s", sessionID, from, to)
	}
	return l.sessions.Update(ctx, sessionID, model.SessionPatch{Status: &to})
}

// InFlight reports the number of currently guarded operations, for stats.
func (l *Lifecycle) InFlight() int {
	return l.guard.size()
}
