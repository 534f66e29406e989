package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/cadencelab/cadence/internal/domain/analysis"
	"github.com/cadencelab/cadence/internal/domain/audio"
	"github.com/cadencelab/cadence/internal/domain/model"
	"github.com/cadencelab/cadence/internal/domain/session"
)

// Default stub configuration constants.
const (
	defaultStubMinLatency = 80 * time.Millisecond
	defaultStubMaxLatency = 150 * time.Millisecond
	stubSegmentSeconds    = 3.0
)

// stubLabels are the wire labels the real service emits.
var stubLabels = []string{
	"NoStutteredWords",
	"NoStutteredWords",
	"NoStutteredWords",
	"Blocking",
	"Prolongation",
	"SoundRep",
	"WordRep",
	"Interjection",
}

// StubOption applies a configuration option to the Stub.
type StubOption func(*Stub)

// WithLatencyRange sets the simulated inference latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) StubOption {
	return func(s *Stub) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// Stub simulates the classification service for local development and
// tests. Results are deterministic per audio payload: the same bytes
// always classify the same way.
type Stub struct {
	minLatency time.Duration
	maxLatency time.Duration
}

// NewStub creates a stub classifier with configuration options.
func NewStub(opts ...StubOption) *Stub {
	s := &Stub{
		minLatency: defaultStubMinLatency,
		maxLatency: defaultStubMaxLatency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify produces a segment-shape result seeded from the audio bytes,
// honoring ctx for cancellation. Non-audio payloads are rejected the way
// the real service rejects them.
func (s *Stub) Classify(ctx context.Context, audioBytes []byte, contentType string) (analysis.RawResult, []byte, error) {
	if len(audioBytes) == 0 {
		return analysis.RawResult{}, nil, fmt.Errorf("empty payload: %w", session.ErrAudioRejected)
	}

	rng := rand.New(rand.NewSource(seed(audioBytes))) //nolint:gosec // deterministic per payload, not security sensitive

	latency := s.minLatency
	if s.maxLatency > s.minLatency {
		latency += time.Duration(rng.Int63n(int64(s.maxLatency - s.minLatency)))
	}
	select {
	case <-ctx.Done():
		return analysis.RawResult{}, nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	duration := stubSegmentSeconds * 4
	if audio.IsWAV(audioBytes) {
		if info, err := audio.DecodeInfo(audioBytes); err == nil && info.Duration > 0 {
			duration = info.Duration.Seconds()
		}
	}

	segments := make([]wireSegment, 0)
	for start := 0.0; start < duration; start += stubSegmentSeconds {
		end := start + stubSegmentSeconds
		if end > duration {
			end = duration
		}
		segments = append(segments, wireSegment{
			StartSec:   start,
			EndSec:     end,
			Label:      stubLabels[rng.Intn(len(stubLabels))],
			Confidence: 0.6 + 0.4*rng.Float64(),
		})
	}

	payload, err := json.Marshal(envelope{Segments: segments})
	if err != nil {
		return analysis.RawResult{}, nil, fmt.Errorf("encode stub response: %w", err)
	}

	out := make([]model.Segment, len(segments))
	for i, ws := range segments {
		out[i] = model.Segment{
			Index:      i,
			StartSec:   ws.StartSec,
			EndSec:     ws.EndSec,
			Label:      ws.Label,
			Confidence: ws.Confidence,
		}
	}
	return analysis.RawResult{HasSegments: true, Segments: out}, payload, nil
}

func seed(data []byte) int64 {
	h := fnv.New64a()
	h.Write(data) //nolint:errcheck // fnv never fails
	return int64(h.Sum64())
}
