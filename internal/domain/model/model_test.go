package model_test

import (
	"testing"
	"time"

	model "github.com/cadencelab/cadence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatusTransitions(t *testing.T) {
	Convey("Given the session status machine", t, func() {
		Convey("Forward single steps are allowed", func() {
			So(model.StatusRecording.CanTransitionTo(model.StatusCompleted), ShouldBeTrue)
			So(model.StatusCompleted.CanTransitionTo(model.StatusAnalyzing), ShouldBeTrue)
			So(model.StatusAnalyzing.CanTransitionTo(model.StatusAnalyzed), ShouldBeTrue)
		})

		Convey("The analyze-failure rollback is allowed", func() {
			So(model.StatusAnalyzing.CanTransitionTo(model.StatusCompleted), ShouldBeTrue)
		})

		Convey("Regressions and skips are rejected", func() {
			So(model.StatusAnalyzed.CanTransitionTo(model.StatusRecording), ShouldBeFalse)
			So(model.StatusAnalyzed.CanTransitionTo(model.StatusCompleted), ShouldBeFalse)
			So(model.StatusCompleted.CanTransitionTo(model.StatusRecording), ShouldBeFalse)
			So(model.StatusRecording.CanTransitionTo(model.StatusAnalyzing), ShouldBeFalse)
			So(model.StatusRecording.CanTransitionTo(model.StatusAnalyzed), ShouldBeFalse)
		})

		Convey("Unknown statuses never transition", func() {
			So(model.Status("gone").CanTransitionTo(model.StatusCompleted), ShouldBeFalse)
			So(model.StatusRecording.CanTransitionTo(model.Status("gone")), ShouldBeFalse)
		})
	})
}

func TestSessionPatchApply(t *testing.T) {
	Convey("Given a session in recording state", t, func() {
		s := model.RecordingSession{
			ID:      "s-1",
			OwnerID: "o-1",
			Status:  model.StatusRecording,
		}

		Convey("When applying a completion patch", func() {
			now := time.Now()
			status := model.StatusCompleted
			key := "o-1/s-1.wav"
			dur := 3 * time.Second
			patch := model.SessionPatch{
				Status:      &status,
				CompletedAt: &now,
				BlobKey:     &key,
				Duration:    &dur,
			}
			patch.Apply(&s)

			Convey("Then all patched fields are set", func() {
				So(s.Status, ShouldEqual, model.StatusCompleted)
				So(s.CompletedAt, ShouldNotBeNil)
				So(s.BlobKey, ShouldEqual, "o-1/s-1.wav")
				So(s.Duration, ShouldEqual, 3*time.Second)
			})
		})

		Convey("When applying an empty patch", func() {
			model.SessionPatch{}.Apply(&s)

			Convey("Then nothing changes", func() {
				So(s.Status, ShouldEqual, model.StatusRecording)
				So(s.CompletedAt, ShouldBeNil)
				So(s.BlobKey, ShouldEqual, "")
			})
		})
	})
}

func TestPercentages(t *testing.T) {
	Convey("Given a percentage vector", t, func() {
		var p model.Percentages
		p.Set(model.CategoryNormal, 80)
		p.Set(model.CategoryBlocking, 10)
		p.Set(model.CategoryInterjection, 5)

		Convey("Get mirrors Set for every category", func() {
			So(p.Get(model.CategoryNormal), ShouldEqual, 80)
			So(p.Get(model.CategoryBlocking), ShouldEqual, 10)
			So(p.Get(model.CategoryInterjection), ShouldEqual, 5)
			So(p.Get(model.CategoryProlongation), ShouldEqual, 0)
		})

		Convey("Unknown categories read as zero and ignore writes", func() {
			p.Set(model.Category("bogus"), 99)
			So(p.Get(model.Category("bogus")), ShouldEqual, 0)
			So(p.Sum(), ShouldEqual, 95)
		})
	})
}

func TestStutterRate(t *testing.T) {
	Convey("Stutter rate is the complement of the normal percentage", t, func() {
		r := model.AnalysisRecord{Percentages: model.Percentages{Normal: 75}}
		So(r.StutterRate(), ShouldEqual, 25)
	})
}
