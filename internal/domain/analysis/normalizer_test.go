package analysis_test

import (
	"testing"

	analysis "github.com/cadencelab/cadence/internal/domain/analysis"
	model "github.com/cadencelab/cadence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMatcher(t *testing.T) {
	Convey("Given the default label matcher", t, func() {
		m := analysis.NewMatcher(nil)

		Convey("Classifier labels map to their categories", func() {
			cases := map[string]model.Category{
				"Blocking":         model.CategoryBlocking,
				"SoundRep":         model.CategorySoundRepetition,
				"sound-repetition": model.CategorySoundRepetition,
				"WordRep":          model.CategoryWordRepetition,
				"word-repetition":  model.CategoryWordRepetition,
				"Prolongation":     model.CategoryProlongation,
				"Interjection":     model.CategoryInterjection,
				"NoStutteredWords": model.CategoryNormal,
				"normal speech":    model.CategoryNormal,
				"fluent":           model.CategoryNormal,
			}
			for label, want := range cases {
				got, ok := m.Match(label)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Compound rules take precedence over single keywords", func() {
			// Contains both "sound" and "rep" as well as "word": the
			// sound-repetition rule is evaluated first.
			got, ok := m.Match("sound repetition of word")
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, model.CategorySoundRepetition)
		})

		Convey("Unknown labels do not match", func() {
			_, ok := m.Match("garbage")
			So(ok, ShouldBeFalse)
		})

		Convey("Overrides replace a category's keyword set", func() {
			custom := analysis.NewMatcher(map[string][]string{
				string(model.CategoryBlocking): {"stuck"},
			})
			_, ok := custom.Match("Blocking")
			So(ok, ShouldBeFalse)
			got, ok := custom.Match("stuck on a word")
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, model.CategoryBlocking)
		})
	})
}

func TestNormalizeSegments(t *testing.T) {
	Convey("Given the normalizer and a segment-shape result", t, func() {
		n := analysis.NewNormalizer(nil)

		Convey("A single fully-confident normal segment normalizes to 100", func() {
			out := n.Normalize(analysis.RawResult{
				HasSegments: true,
				Segments: []model.Segment{
					{StartSec: 0, EndSec: 3, Label: "NoStutteredWords", Confidence: 1.0},
				},
			})
			So(out.TotalUnits, ShouldEqual, 1)
			So(out.Percentages.Normal, ShouldEqual, 100)
			So(out.Percentages.Sum(), ShouldEqual, 100)
		})

		Convey("Confidences sum per category against the segment count", func() {
			out := n.Normalize(analysis.RawResult{
				HasSegments: true,
				Segments: []model.Segment{
					{Label: "Blocking", Confidence: 0.8},
					{Label: "Blocking", Confidence: 0.6},
					{Label: "NoStutteredWords", Confidence: 1.0},
					{Label: "Prolongation", Confidence: 0.5},
				},
			})
			So(out.TotalUnits, ShouldEqual, 4)
			So(out.Percentages.Blocking, ShouldAlmostEqual, 35, 1e-9)
			So(out.Percentages.Normal, ShouldAlmostEqual, 25, 1e-9)
			So(out.Percentages.Prolongation, ShouldAlmostEqual, 12.5, 1e-9)
			So(out.Percentages.Sum(), ShouldBeLessThanOrEqualTo, 100+1e-9)
		})

		Convey("Unsorted segments are handled; order is irrelevant", func() {
			out := n.Normalize(analysis.RawResult{
				HasSegments: true,
				Segments: []model.Segment{
					{StartSec: 2, EndSec: 3, Label: "Interjection", Confidence: 1},
					{StartSec: 0, EndSec: 1, Label: "Interjection", Confidence: 1},
				},
			})
			So(out.Percentages.Interjection, ShouldEqual, 100)
		})

		Convey("Out-of-range confidences are clamped, never wrapped", func() {
			out := n.Normalize(analysis.RawResult{
				HasSegments: true,
				Segments: []model.Segment{
					{Label: "Blocking", Confidence: 7.5},
				},
			})
			So(out.Percentages.Blocking, ShouldEqual, 100)

			out = n.Normalize(analysis.RawResult{
				HasSegments: true,
				Segments: []model.Segment{
					{Label: "Blocking", Confidence: -2},
				},
			})
			So(out.Percentages.Blocking, ShouldEqual, 0)
		})

		Convey("A present-but-empty segment list yields all zeros", func() {
			out := n.Normalize(analysis.RawResult{HasSegments: true})
			So(out.TotalUnits, ShouldEqual, 0)
			So(out.Percentages.Sum(), ShouldEqual, 0)
		})
	})
}

func TestNormalizeSummary(t *testing.T) {
	Convey("Given the normalizer and a summary-counts result", t, func() {
		n := analysis.NewNormalizer(nil)

		Convey("Counts divide by the count sum", func() {
			out := n.Normalize(analysis.RawResult{
				Summary: map[string]int{
					"NoStutteredWords": 6,
					"Blocking":         2,
					"WordRep":          2,
				},
			})
			So(out.TotalUnits, ShouldEqual, 10)
			So(out.Percentages.Normal, ShouldEqual, 60)
			So(out.Percentages.Blocking, ShouldEqual, 20)
			So(out.Percentages.WordRepetition, ShouldEqual, 20)
		})

		Convey("An empty summary map yields all zeros, never NaN", func() {
			out := n.Normalize(analysis.RawResult{Summary: map[string]int{}})
			So(out.TotalUnits, ShouldEqual, 0)
			for _, cat := range model.Categories() {
				So(out.Percentages.Get(cat), ShouldEqual, 0)
			}
		})

		Convey("Unmatched labels count toward the denominator only", func() {
			out := n.Normalize(analysis.RawResult{
				Summary: map[string]int{
					"NoStutteredWords": 5,
					"Mystery":          5,
				},
			})
			So(out.Percentages.Normal, ShouldEqual, 50)
			So(out.Percentages.Sum(), ShouldEqual, 50)
		})
	})
}

func TestNormalizeLegacy(t *testing.T) {
	Convey("Given the normalizer and a legacy confidence-map result", t, func() {
		n := analysis.NewNormalizer(nil)

		Convey("Confidences scale straight to percentages", func() {
			out := n.Normalize(analysis.RawResult{
				Confidences: map[string]float64{
					"normal":           0.7,
					"blocking":         0.2,
					"sound-repetition": 0.1,
				},
				TopClass: "normal",
			})
			So(out.TotalUnits, ShouldEqual, 100)
			So(out.Percentages.Normal, ShouldAlmostEqual, 70, 1e-9)
			So(out.Percentages.Blocking, ShouldAlmostEqual, 20, 1e-9)
			So(out.Percentages.SoundRepetition, ShouldAlmostEqual, 10, 1e-9)
		})

		Convey("Out-of-range confidences are clamped", func() {
			out := n.Normalize(analysis.RawResult{
				Confidences: map[string]float64{"blocking": 1.8, "prolongation": -0.5},
			})
			So(out.Percentages.Blocking, ShouldEqual, 100)
			So(out.Percentages.Prolongation, ShouldEqual, 0)
		})
	})
}

func TestShapeDetection(t *testing.T) {
	Convey("Shape detection picks the first applicable shape", t, func() {
		Convey("Segments win over a summary that is also present", func() {
			raw := analysis.RawResult{
				HasSegments: true,
				Segments:    []model.Segment{{Label: "Blocking", Confidence: 1}},
				Summary:     map[string]int{"NoStutteredWords": 99},
			}
			So(raw.Shape(), ShouldEqual, analysis.ShapeSegments)

			out := analysis.NewNormalizer(nil).Normalize(raw)
			// The summary is ignored entirely; shapes are never merged.
			So(out.Percentages.Blocking, ShouldEqual, 100)
			So(out.Percentages.Normal, ShouldEqual, 0)
		})

		Convey("Summary wins over legacy confidences", func() {
			raw := analysis.RawResult{
				Summary:     map[string]int{"Blocking": 1},
				Confidences: map[string]float64{"normal": 1},
			}
			So(raw.Shape(), ShouldEqual, analysis.ShapeSummary)
		})

		Convey("An empty result has the empty shape and normalizes to zeros", func() {
			raw := analysis.RawResult{}
			So(raw.Shape(), ShouldEqual, analysis.ShapeEmpty)
			out := analysis.NewNormalizer(nil).Normalize(raw)
			So(out.Percentages.Sum(), ShouldEqual, 0)
			So(out.TotalUnits, ShouldEqual, 0)
		})
	})
}
