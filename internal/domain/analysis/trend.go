package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/cadencelab/cadence/internal/domain/model"
)

// Direction describes how a category moved between the first and last
// record. Down is improvement for the stutter categories since lower rates
// are better.
type Direction string

// Trend directions.
const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// Trend is a two-point comparison between the first and last record's
// value for one category. Deliberately not a fitted slope.
type Trend struct {
	Direction      Direction `json:"direction"`
	AbsoluteChange float64   `json:"absolute_change"`
	// PercentChange is the unsigned magnitude of the relative change;
	// the sign lives in Direction.
	PercentChange float64 `json:"percent_change"`
}

// TrendPoint is the chart-ready projection of one analysis record.
// Derived on demand, never persisted.
type TrendPoint struct {
	SessionID   string            `json:"session_id"`
	Label       string            `json:"label"`
	Timestamp   time.Time         `json:"timestamp"`
	Percentages model.Percentages `json:"percentages"`
	StutterRate float64           `json:"stutter_rate"`
}

// Points flattens an ordered-by-time record list into one TrendPoint per
// record. Ordering is the caller's responsibility; ties keep arrival order.
func Points(records []model.AnalysisRecord) []TrendPoint {
	points := make([]TrendPoint, len(records))
	for i, rec := range records {
		points[i] = TrendPoint{
			SessionID:   rec.SessionID,
			Label:       fmt.Sprintf("Session %d", i+1),
			Timestamp:   rec.AnalyzedAt,
			Percentages: rec.Percentages,
			StutterRate: rec.StutterRate(),
		}
	}
	return points
}

// TrendFor compares the first and last record's value for the category.
// With fewer than two records there is no trend to report and ok is false;
// a single point is insufficient data, not a stable trend.
func TrendFor(records []model.AnalysisRecord, category model.Category) (Trend, bool) {
	if len(records) < 2 {
		return Trend{}, false
	}

	first := records[0].Percentages.Get(category)
	last := records[len(records)-1].Percentages.Get(category)
	change := last - first

	direction := DirectionStable
	switch {
	case change < 0:
		direction = DirectionDown
	case change > 0:
		direction = DirectionUp
	}

	var percent float64
	if first > 0 {
		percent = math.Abs(change/first) * 100
	}

	return Trend{
		Direction:      direction,
		AbsoluteChange: change,
		PercentChange:  percent,
	}, true
}
