package analysis

import (
	"github.com/cadencelab/cadence/internal/domain/model"
)

// Shape identifies which of the three classifier result shapes a RawResult
// carries.
type Shape string

// The wire shapes the classifier service has produced over time.
const (
	ShapeSegments Shape = "segments"
	ShapeSummary  Shape = "summary"
	ShapeLegacy   Shape = "legacy"
	ShapeEmpty    Shape = "empty"
)

// TimelineEntry is one window of the legacy confidence-map shape. The
// normalizer ignores it; it is preserved so the stored raw payload stays
// complete.
type TimelineEntry struct {
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Confidences []float64 `json:"confidences"`
	Top         string    `json:"top"`
}

// RawResult is the tagged union of the three classifier result shapes.
// Exactly one branch is populated; shape detection happens once, at decode
// time, and branches are never merged.
type RawResult struct {
	// Segment shape: labeled time segments with confidences. HasSegments
	// distinguishes a present-but-empty list from an absent field.
	HasSegments bool
	Segments    []model.Segment

	// Summary shape: precomputed counts per label. Non-nil when present,
	// even if empty.
	Summary map[string]int

	// Legacy shape: one confidence per label, roughly probability-like.
	Confidences map[string]float64
	TopClass    string
	Timeline    []TimelineEntry
}

// Shape returns the first applicable shape in priority order.
func (r RawResult) Shape() Shape {
	switch {
	case r.HasSegments:
		return ShapeSegments
	case r.Summary != nil:
		return ShapeSummary
	case r.Confidences != nil:
		return ShapeLegacy
	default:
		return ShapeEmpty
	}
}

// Normalized is the canonical output of normalization: the six-category
// percentage vector and the denominator it was computed against.
type Normalized struct {
	Percentages model.Percentages
	TotalUnits  float64
}

// Normalizer converts any RawResult into a Normalized vector. It is total:
// malformed or empty input degrades to an all-zero vector, never an error
// and never NaN.
type Normalizer struct {
	matcher *Matcher
}

// NewNormalizer builds a normalizer around the given label matcher. A nil
// matcher selects the default keyword sets.
func NewNormalizer(matcher *Matcher) *Normalizer {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	return &Normalizer{matcher: matcher}
}

// Normalize dispatches on the detected shape and produces clamped
// percentages. The zero-denominator case yields all zeros by definition.
func (n *Normalizer) Normalize(raw RawResult) Normalized {
	switch raw.Shape() {
	case ShapeSegments:
		return n.fromSegments(raw.Segments)
	case ShapeSummary:
		return n.fromSummary(raw.Summary)
	case ShapeLegacy:
		return n.fromConfidences(raw.Confidences)
	default:
		return Normalized{}
	}
}

// fromSegments sums each segment's confidence into its matched category.
// The denominator is the segment count, not the confidence sum, so
// overconfident segments cannot push a category past its share.
func (n *Normalizer) fromSegments(segments []model.Segment) Normalized {
	total := float64(len(segments))
	if total == 0 {
		return Normalized{}
	}

	acc := map[model.Category]float64{}
	for _, seg := range segments {
		if cat, ok := n.matcher.Match(seg.Label); ok {
			acc[cat] += seg.Confidence
		}
	}

	var p model.Percentages
	for cat, sum := range acc {
		p.Set(cat, clampPercent(100*sum/total))
	}
	return Normalized{Percentages: p, TotalUnits: total}
}

// fromSummary converts precomputed per-label counts into percentages.
func (n *Normalizer) fromSummary(summary map[string]int) Normalized {
	var total float64
	for _, count := range summary {
		total += float64(count)
	}
	if total == 0 {
		return Normalized{}
	}

	acc := map[model.Category]float64{}
	for label, count := range summary {
		if cat, ok := n.matcher.Match(label); ok {
			acc[cat] += float64(count)
		}
	}

	var p model.Percentages
	for cat, sum := range acc {
		p.Set(cat, clampPercent(100*sum/total))
	}
	return Normalized{Percentages: p, TotalUnits: total}
}

// fromConfidences scales the legacy per-category confidences straight to
// percentages; the denominator is fixed at 100 for downstream consistency.
func (n *Normalizer) fromConfidences(confidences map[string]float64) Normalized {
	var p model.Percentages
	for label, conf := range confidences {
		if cat, ok := n.matcher.Match(label); ok {
			p.Set(cat, clampPercent(p.Get(cat)+100*conf))
		}
	}
	return Normalized{Percentages: p, TotalUnits: 100}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
