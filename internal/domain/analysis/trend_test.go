package analysis_test

import (
	"testing"
	"time"

	analysis "github.com/cadencelab/cadence/internal/domain/analysis"
	model "github.com/cadencelab/cadence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func recordWith(blocking, normal float64, at time.Time) model.AnalysisRecord {
	return model.AnalysisRecord{
		Percentages: model.Percentages{Blocking: blocking, Normal: normal},
		AnalyzedAt:  at,
	}
}

func TestTrendFor(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	Convey("Given three records with falling blocking rates", t, func() {
		records := []model.AnalysisRecord{
			recordWith(40, 60, base),
			recordWith(30, 70, base.Add(24*time.Hour)),
			recordWith(10, 90, base.Add(48*time.Hour)),
		}

		Convey("The blocking trend compares first against last", func() {
			trend, ok := analysis.TrendFor(records, model.CategoryBlocking)
			So(ok, ShouldBeTrue)
			So(trend.Direction, ShouldEqual, analysis.DirectionDown)
			So(trend.AbsoluteChange, ShouldEqual, -30)
			So(trend.PercentChange, ShouldEqual, 75)
		})

		Convey("A rising category reports up with unsigned magnitude", func() {
			trend, ok := analysis.TrendFor(records, model.CategoryNormal)
			So(ok, ShouldBeTrue)
			So(trend.Direction, ShouldEqual, analysis.DirectionUp)
			So(trend.AbsoluteChange, ShouldEqual, 30)
			So(trend.PercentChange, ShouldEqual, 50)
		})
	})

	Convey("Exactly zero change is stable", t, func() {
		records := []model.AnalysisRecord{
			recordWith(20, 80, base),
			recordWith(20, 80, base.Add(time.Hour)),
		}
		trend, ok := analysis.TrendFor(records, model.CategoryBlocking)
		So(ok, ShouldBeTrue)
		So(trend.Direction, ShouldEqual, analysis.DirectionStable)
		So(trend.AbsoluteChange, ShouldEqual, 0)
		So(trend.PercentChange, ShouldEqual, 0)
	})

	Convey("A zero first value never divides", t, func() {
		records := []model.AnalysisRecord{
			recordWith(0, 100, base),
			recordWith(15, 85, base.Add(time.Hour)),
		}
		trend, ok := analysis.TrendFor(records, model.CategoryBlocking)
		So(ok, ShouldBeTrue)
		So(trend.Direction, ShouldEqual, analysis.DirectionUp)
		So(trend.AbsoluteChange, ShouldEqual, 15)
		So(trend.PercentChange, ShouldEqual, 0)
	})

	Convey("Fewer than two records yields no trend at all", t, func() {
		_, ok := analysis.TrendFor(nil, model.CategoryBlocking)
		So(ok, ShouldBeFalse)

		one := []model.AnalysisRecord{recordWith(40, 60, base)}
		_, ok = analysis.TrendFor(one, model.CategoryBlocking)
		So(ok, ShouldBeFalse)
	})
}

func TestPoints(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	Convey("Points projects one chart point per record, in order", t, func() {
		records := []model.AnalysisRecord{
			{SessionID: "s-1", Percentages: model.Percentages{Normal: 75}, AnalyzedAt: base},
			{SessionID: "s-2", Percentages: model.Percentages{Normal: 90}, AnalyzedAt: base.Add(time.Hour)},
		}
		points := analysis.Points(records)

		So(len(points), ShouldEqual, 2)
		So(points[0].SessionID, ShouldEqual, "s-1")
		So(points[0].Label, ShouldEqual, "Session 1")
		So(points[0].StutterRate, ShouldEqual, 25)
		So(points[1].Label, ShouldEqual, "Session 2")
		So(points[1].StutterRate, ShouldAlmostEqual, 10, 1e-9)
		So(points[1].Timestamp, ShouldEqual, base.Add(time.Hour))
	})

	Convey("No records flattens to an empty series", t, func() {
		So(len(analysis.Points(nil)), ShouldEqual, 0)
	})
}
