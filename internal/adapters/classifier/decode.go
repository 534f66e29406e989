package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/cadencelab/cadence/internal/domain/analysis"
	"github.com/cadencelab/cadence/internal/domain/model"
)

// envelope covers the tagged response shapes the classifier service has
// produced over time. Which fields are present decides the shape; the
// decoder never merges branches. The summary-only shape has no wrapper
// key at all and is detected by fallback in Decode.
type envelope struct {
	Segments []wireSegment  `json:"segments,omitempty"`
	Summary  map[string]int `json:"summary,omitempty"`

	Confidences map[string]float64       `json:"confidences,omitempty"`
	TopClass    string                   `json:"top_class,omitempty"`
	Timeline    []analysis.TimelineEntry `json:"timeline,omitempty"`
}

type wireSegment struct {
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Decode parses a classifier response payload into the result union.
// Field presence picks the shape: segments, then summary counts, then the
// legacy confidence map, then a bare {label: count} object.
func Decode(payload []byte) (analysis.RawResult, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return analysis.RawResult{}, fmt.Errorf("decode classifier response: %w", err)
	}

	// json.Unmarshal leaves absent slices nil; "segments": [] yields a
	// non-nil empty slice, which still counts as the segment shape.
	if env.Segments != nil {
		segments := make([]model.Segment, len(env.Segments))
		for i, ws := range env.Segments {
			segments[i] = model.Segment{
				Index:      i,
				StartSec:   ws.StartSec,
				EndSec:     ws.EndSec,
				Label:      ws.Label,
				Confidence: ws.Confidence,
			}
		}
		return analysis.RawResult{HasSegments: true, Segments: segments}, nil
	}

	if env.Summary != nil {
		return analysis.RawResult{Summary: env.Summary}, nil
	}

	if env.Confidences != nil {
		return analysis.RawResult{
			Confidences: env.Confidences,
			TopClass:    env.TopClass,
			Timeline:    env.Timeline,
		}, nil
	}

	// The summary-only shape is a bare {label: count} object. Non-integer
	// values mean the payload is some other object, not that shape.
	var bare map[string]int
	if err := json.Unmarshal(payload, &bare); err == nil && len(bare) > 0 {
		return analysis.RawResult{Summary: bare}, nil
	}

	return analysis.RawResult{}, nil
}
