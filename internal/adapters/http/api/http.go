// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cadencelab/cadence/internal/adapters/blob"
	"github.com/cadencelab/cadence/internal/adapters/mq/queue"
	"github.com/cadencelab/cadence/internal/adapters/repository"
	"github.com/cadencelab/cadence/internal/domain/analysis"
	"github.com/cadencelab/cadence/internal/domain/model"
	"github.com/cadencelab/cadence/internal/domain/session"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSession(ctx context.Context, ownerID, promptID string) (model.RecordingSession, error)
	GetSession(ctx context.Context, id string) (model.RecordingSession, error)
	GetAnalysis(ctx context.Context, sessionID string) (model.AnalysisRecord, error)

	// UploadRecording stores the finished recording and completes the session.
	UploadRecording(ctx context.Context, sessionID string, data []byte, contentType string) (model.RecordingSession, error)

	// RequestAnalysis queues the session for asynchronous analysis.
	// Returns queue.ErrQueueFull when the queue is full.
	RequestAnalysis(ctx context.Context, sessionID string) error

	// ListAnalyses returns the owner's analyses joined with playback
	// details, oldest first.
	ListAnalyses(ctx context.Context, ownerID string) ([]model.AnalysisView, error)

	// Trends compares the owner's oldest and newest analyses for one
	// category. ok is false with fewer than two analyses.
	Trends(ctx context.Context, ownerID string, category model.Category) (analysis.Trend, []analysis.TrendPoint, bool, error)

	// Blob playback.
	OpenBlob(ctx context.Context, key string) (data []byte, contentType string, err error)
	VerifyBlobSignature(key, expires, sig string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	analysesHandler *AnalysesHandler
	trendsHandler   *TrendsHandler
	blobsHandler    *BlobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps),
		analysesHandler: NewAnalysesHandler(deps),
		trendsHandler:   NewTrendsHandler(deps),
		blobsHandler:    NewBlobsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleSessions, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSession, "session"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.analysesHandler.HandleListAnalyses, "analyses"))
	mux.HandleFunc("/trends", MetricsMiddleware(s.trendsHandler.HandleGetTrends, "trends"))
	mux.HandleFunc("/blobs/", s.blobsHandler.HandleGetBlob)
}

// sessionResponse mirrors the OpenAPI schema for session reads.
type sessionResponse struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"owner_id"`
	PromptID    string            `json:"prompt_id,omitempty"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	DurationSec float64           `json:"duration_sec,omitempty"`
	Analysis    *analysisResponse `json:"analysis,omitempty"`
}

type analysisResponse struct {
	SessionID   string          `json:"session_id"`
	Percentages percentagesBody `json:"percentages"`
	StutterRate float64         `json:"stutter_rate"`
	TotalUnits  float64         `json:"total_units"`
	Segments    []segmentBody   `json:"segments,omitempty"`
	Waveform    []float64       `json:"waveform,omitempty"`
	AnalyzedAt  time.Time       `json:"analyzed_at"`
}

type percentagesBody struct {
	Normal          float64 `json:"normal"`
	Blocking        float64 `json:"blocking"`
	Prolongation    float64 `json:"prolongation"`
	SoundRepetition float64 `json:"sound_repetition"`
	WordRepetition  float64 `json:"word_repetition"`
	Interjection    float64 `json:"interjection"`
}

type segmentBody struct {
	Index      int     `json:"index"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toSessionResponse(s model.RecordingSession) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		PromptID:    s.PromptID,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
		DurationSec: s.Duration.Seconds(),
	}
}

func toAnalysisResponse(rec model.AnalysisRecord) *analysisResponse {
	segments := make([]segmentBody, len(rec.Segments))
	for i, seg := range rec.Segments {
		segments[i] = segmentBody{
			Index:      seg.Index,
			StartSec:   seg.StartSec,
			EndSec:     seg.EndSec,
			Label:      seg.Label,
			Confidence: seg.Confidence,
		}
	}
	return &analysisResponse{
		SessionID:   rec.SessionID,
		Percentages: toPercentagesBody(rec.Percentages),
		StutterRate: rec.StutterRate(),
		TotalUnits:  rec.TotalUnits,
		Segments:    segments,
		Waveform:    rec.Waveform,
		AnalyzedAt:  rec.AnalyzedAt,
	}
}

func toPercentagesBody(p model.Percentages) percentagesBody {
	return percentagesBody{
		Normal:          p.Normal,
		Blocking:        p.Blocking,
		Prolongation:    p.Prolongation,
		SoundRepetition: p.SoundRepetition,
		WordRepetition:  p.WordRepetition,
		Interjection:    p.Interjection,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates lifecycle and store errors to HTTP status
// codes, one branch per error kind.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, blob.ErrBlobNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, session.ErrUploadInFlight), errors.Is(err, session.ErrAnalysisInFlight):
		writeError(w, http.StatusConflict, "in_flight", err)
	case errors.Is(err, session.ErrAlreadyUploaded), errors.Is(err, session.ErrAlreadyAnalyzed):
		writeError(w, http.StatusConflict, "already_done", err)
	case errors.Is(err, session.ErrNotUploaded):
		writeError(w, http.StatusConflict, "not_uploaded", err)
	case errors.Is(err, session.ErrAudioRejected):
		writeError(w, http.StatusUnprocessableEntity, "audio_rejected", err)
	case errors.Is(err, session.ErrClassifierUnavailable):
		writeError(w, http.StatusBadGateway, "classifier_unavailable", err)
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
