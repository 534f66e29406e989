// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cadencelab/cadence/internal/adapters/blob"
	"github.com/cadencelab/cadence/internal/adapters/classifier"
	jobqueue "github.com/cadencelab/cadence/internal/adapters/mq/queue"
	workerpool "github.com/cadencelab/cadence/internal/adapters/mq/worker"
	"github.com/cadencelab/cadence/internal/adapters/repository"
	"github.com/cadencelab/cadence/internal/domain/analysis"
	"github.com/cadencelab/cadence/internal/domain/audio"
	"github.com/cadencelab/cadence/internal/domain/model"
	"github.com/cadencelab/cadence/internal/domain/session"
	"github.com/cadencelab/cadence/pkg/logger"
	"github.com/cadencelab/cadence/pkg/metrics"
)

// Service wires the stores, the classifier, the lifecycle, and the
// analysis pipeline behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	blobs      blob.Store
	signer     *blob.Signer
	classifier session.Classifier
	lifecycle  *session.Lifecycle
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount        int
	queueSize          int
	databasePath       string
	blobDir            string
	blobURLSecret      string
	blobURLTTL         time.Duration
	classifierEndpoint string
	classifierTimeout  time.Duration
	categoryKeywords   map[string][]string
	waveformBuckets    int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the analysis job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDatabasePath sets the SQLite database file. Empty keeps sessions
// in memory.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		s.databasePath = path
	}
}

// WithBlobDir sets the directory recordings are stored under.
func WithBlobDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.blobDir = dir
		}
	}
}

// WithBlobSigning sets the playback URL secret and lifetime.
func WithBlobSigning(secret string, ttl time.Duration) Option {
	return func(s *Service) {
		s.blobURLSecret = secret
		if ttl > 0 {
			s.blobURLTTL = ttl
		}
	}
}

// WithClassifierEndpoint sets the inference service URL. Empty selects
// the built-in stub.
func WithClassifierEndpoint(endpoint string) Option {
	return func(s *Service) {
		s.classifierEndpoint = endpoint
	}
}

// WithClassifierTimeout sets the per-inference timeout.
func WithClassifierTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.classifierTimeout = d
		}
	}
}

// WithCategoryKeywords overrides the label keyword sets per category.
func WithCategoryKeywords(keywords map[string][]string) Option {
	return func(s *Service) {
		s.categoryKeywords = keywords
	}
}

// WithWaveformBuckets sets the amplitude envelope length.
func WithWaveformBuckets(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.waveformBuckets = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         1024,
		blobDir:           filepath.Join(os.TempDir(), "cadence-blobs"),
		blobURLTTL:        15 * time.Minute,
		classifierTimeout: 60 * time.Second,
		waveformBuckets:   96,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting cadence service...")

	if s.databasePath != "" {
		store, err := repository.NewSQLiteStore(ctx, s.databasePath)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.databasePath))
	} else {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	blobs, err := blob.NewFilesystemStore(s.blobDir)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	s.blobs = blobs
	s.signer = blob.NewSigner(s.blobURLSecret, s.blobURLTTL)

	if s.classifierEndpoint != "" {
		s.classifier = classifier.NewClient(
			s.classifierEndpoint,
			classifier.WithTimeout(s.classifierTimeout),
		)
		s.logger.Info(ctx, "using remote classifier", logger.String("endpoint", s.classifierEndpoint))
	} else {
		s.classifier = classifier.NewStub()
		s.logger.Info(ctx, "using stub classifier")
	}

	normalizer := analysis.NewNormalizer(analysis.NewMatcher(s.categoryKeywords))
	s.lifecycle = session.New(
		&sessionsAdapter{store: s.store}, s.blobs, s.classifier, normalizer,
		session.WithWaveformBuckets(s.waveformBuckets),
	)

	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, &analyzerAdapter{service: s})
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "cadence service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping cadence service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "cadence service stopped")
}

// sessionsAdapter exposes repository.Store under the method names the
// session.Sessions contract expects.
type sessionsAdapter struct {
	store repository.Store
}

func (a *sessionsAdapter) Create(ctx context.Context, s model.RecordingSession) error {
	return a.store.CreateSession(ctx, s)
}

func (a *sessionsAdapter) Get(ctx context.Context, id string) (model.RecordingSession, error) {
	return a.store.GetSession(ctx, id)
}

func (a *sessionsAdapter) Update(ctx context.Context, id string, patch model.SessionPatch) error {
	return a.store.UpdateSession(ctx, id, patch)
}

func (a *sessionsAdapter) SaveAnalysis(ctx context.Context, rec model.AnalysisRecord) error {
	return a.store.SaveAnalysis(ctx, rec)
}

// analyzerAdapter lets workers run the lifecycle analysis with service
// metrics attached.
type analyzerAdapter struct {
	service *Service
}

func (a *analyzerAdapter) Analyze(ctx context.Context, sessionID string) (model.AnalysisRecord, error) {
	return a.service.analyze(ctx, sessionID)
}

func (s *Service) analyze(ctx context.Context, sessionID string) (model.AnalysisRecord, error) {
	start := time.Now()
	rec, err := s.lifecycle.Analyze(ctx, sessionID)
	if err != nil {
		metrics.RecordAnalysisError(analysisErrorKind(err))
		return model.AnalysisRecord{}, err
	}
	metrics.RecordClassifierLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordAnalysisCompleted()
	return rec, nil
}

func analysisErrorKind(err error) string {
	switch {
	case errors.Is(err, session.ErrAudioRejected):
		return "audio_rejected"
	case errors.Is(err, session.ErrClassifierUnavailable):
		return "classifier_unavailable"
	case errors.Is(err, session.ErrAnalysisInFlight), errors.Is(err, session.ErrAlreadyAnalyzed):
		return "duplicate"
	default:
		return "internal"
	}
}

// CreateSession starts a new recording session.
func (s *Service) CreateSession(ctx context.Context, ownerID, promptID string) (model.RecordingSession, error) {
	sess, err := s.lifecycle.Create(ctx, ownerID, promptID)
	if err != nil {
		return model.RecordingSession{}, err
	}
	metrics.RecordSessionCreated()
	return sess, nil
}

// GetSession returns the session with the given id.
func (s *Service) GetSession(ctx context.Context, id string) (model.RecordingSession, error) {
	return s.store.GetSession(ctx, id)
}

// GetAnalysis returns the analysis record for a session.
func (s *Service) GetAnalysis(ctx context.Context, sessionID string) (model.AnalysisRecord, error) {
	return s.store.GetAnalysis(ctx, sessionID)
}

// UploadRecording stores the finished recording and completes the session.
func (s *Service) UploadRecording(ctx context.Context, sessionID string, data []byte, contentType string) (model.RecordingSession, error) {
	rec := audio.Recording{
		Bytes:    data,
		MIMEType: contentType,
		Encoded:  audio.IsWAV(data),
	}
	sess, err := s.lifecycle.Upload(ctx, sessionID, rec)
	if err != nil {
		metrics.RecordUploadError()
		return model.RecordingSession{}, err
	}
	metrics.RecordUploadCompleted()

	// Completed uploads feed the analysis pipeline directly; the explicit
	// analysis endpoint stays available as the retry path when the queue
	// was full here.
	if !s.jobQueue.Enqueue(ctx, jobqueue.Job{SessionID: sessionID}) {
		s.logger.Warn(ctx, "analysis queue full, session awaits manual analysis",
			logger.String("session_id", sessionID))
	}
	return sess, nil
}

// RequestAnalysis queues the session for asynchronous analysis. The
// status preconditions are checked here so callers get an immediate
// typed rejection instead of a silently dropped job.
func (s *Service) RequestAnalysis(ctx context.Context, sessionID string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	switch sess.Status {
	case model.StatusRecording:
		return fmt.Errorf("session %s: %w", sessionID, session.ErrNotUploaded)
	case model.StatusAnalyzing:
		return fmt.Errorf("session %s: %w", sessionID, session.ErrAnalysisInFlight)
	case model.StatusAnalyzed:
		return fmt.Errorf("session %s: %w", sessionID, session.ErrAlreadyAnalyzed)
	}

	if !s.jobQueue.Enqueue(ctx, jobqueue.Job{SessionID: sessionID}) {
		return fmt.Errorf("session %s: %w", sessionID, jobqueue.ErrQueueFull)
	}
	return nil
}

// ListAnalyses returns the owner's analyses joined with playback
// details, oldest first.
func (s *Service) ListAnalyses(ctx context.Context, ownerID string) ([]model.AnalysisView, error) {
	records, err := s.store.ListAnalyses(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	views := make([]model.AnalysisView, len(records))
	for i, rec := range records {
		views[i] = model.AnalysisView{
			SessionID:   rec.SessionID,
			AnalyzedAt:  rec.AnalyzedAt,
			Percentages: rec.Percentages,
			StutterRate: rec.StutterRate(),
			TotalUnits:  rec.TotalUnits,
			Waveform:    rec.Waveform,
		}

		sess, err := s.store.GetSession(ctx, rec.SessionID)
		if err != nil {
			// The analysis outlived its session row; list it without
			// playback details rather than failing the whole page.
			s.logger.Warn(ctx, "analysis without session",
				logger.String("session_id", rec.SessionID),
				logger.Error(err),
			)
			continue
		}
		views[i].PromptID = sess.PromptID
		views[i].Duration = sess.Duration
		if sess.BlobKey != "" && s.blobs.Exists(ctx, sess.BlobKey) {
			views[i].AudioURL = s.signer.SignedURL(sess.BlobKey)
		}
	}
	return views, nil
}

// Trends compares the owner's oldest and newest analyses for one
// category and projects the chart points.
func (s *Service) Trends(ctx context.Context, ownerID string, category model.Category) (analysis.Trend, []analysis.TrendPoint, bool, error) {
	records, err := s.store.ListAnalyses(ctx, ownerID)
	if err != nil {
		return analysis.Trend{}, nil, false, err
	}
	trend, ok := analysis.TrendFor(records, category)
	return trend, analysis.Points(records), ok, nil
}

// OpenBlob returns a stored recording and its content type.
func (s *Service) OpenBlob(ctx context.Context, key string) ([]byte, string, error) {
	return s.blobs.Get(ctx, key)
}

// VerifyBlobSignature checks a playback URL signature.
func (s *Service) VerifyBlobSignature(key, expires, sig string) error {
	return s.signer.Verify(key, expires, sig)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		totalSessions := s.store.CountSessions(ctx)

		stats["queueLength"] = queueLen
		stats["totalSessions"] = totalSessions
		stats["inFlight"] = s.lifecycle.InFlight()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalSessions(totalSessions)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	return stats
}
