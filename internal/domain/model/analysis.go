package model

import "time"

// Category is one of the six classification buckets every analysis is
// normalized into.
type Category string

// The closed category set. "Normal" is the no-pattern bucket; the other
// five are stutter patterns.
const (
	CategoryNormal          Category = "normal"
	CategoryBlocking        Category = "blocking"
	CategoryProlongation    Category = "prolongation"
	CategorySoundRepetition Category = "sound_repetition"
	CategoryWordRepetition  Category = "word_repetition"
	CategoryInterjection    Category = "interjection"
)

// Categories returns the category set in its canonical order.
func Categories() []Category {
	return []Category{
		CategoryNormal,
		CategoryBlocking,
		CategoryProlongation,
		CategorySoundRepetition,
		CategoryWordRepetition,
		CategoryInterjection,
	}
}

// Percentages is the normalized six-category distribution. Values are
// clamped to [0,100]; the sum stays within 100 plus rounding slack.
type Percentages struct {
	Normal          float64 `json:"normal"`
	Blocking        float64 `json:"blocking"`
	Prolongation    float64 `json:"prolongation"`
	SoundRepetition float64 `json:"sound_repetition"`
	WordRepetition  float64 `json:"word_repetition"`
	Interjection    float64 `json:"interjection"`
}

// Get returns the percentage for category c, 0 for unknown categories.
func (p Percentages) Get(c Category) float64 {
	switch c {
	case CategoryNormal:
		return p.Normal
	case CategoryBlocking:
		return p.Blocking
	case CategoryProlongation:
		return p.Prolongation
	case CategorySoundRepetition:
		return p.SoundRepetition
	case CategoryWordRepetition:
		return p.WordRepetition
	case CategoryInterjection:
		return p.Interjection
	default:
		return 0
	}
}

// Set assigns the percentage for category c. Unknown categories are ignored.
func (p *Percentages) Set(c Category, v float64) {
	switch c {
	case CategoryNormal:
		p.Normal = v
	case CategoryBlocking:
		p.Blocking = v
	case CategoryProlongation:
		p.Prolongation = v
	case CategorySoundRepetition:
		p.SoundRepetition = v
	case CategoryWordRepetition:
		p.WordRepetition = v
	case CategoryInterjection:
		p.Interjection = v
	}
}

// Sum returns the total across all six categories.
func (p Percentages) Sum() float64 {
	return p.Normal + p.Blocking + p.Prolongation +
		p.SoundRepetition + p.WordRepetition + p.Interjection
}

// Segment is one labeled time interval produced by the classifier.
// Identity within a session is the segment index.
type Segment struct {
	Index      int     `json:"index"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// AnalysisRecord is the stored result of analyzing one session. Created
// once per session and immutable afterward.
type AnalysisRecord struct {
	SessionID   string      `json:"session_id"`
	OwnerID     string      `json:"owner_id"`
	Percentages Percentages `json:"percentages"`
	// TotalUnits is the normalization denominator: segment count, count
	// sum, or 100 for the legacy confidence-map shape.
	TotalUnits float64   `json:"total_units"`
	Segments   []Segment `json:"segments,omitempty"`
	// Raw preserves the classifier payload exactly as received.
	Raw        []byte    `json:"-"`
	Waveform   []float64 `json:"waveform,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// StutterRate is the complement of the normal-speech percentage.
func (r AnalysisRecord) StutterRate() float64 {
	return 100 - r.Percentages.Normal
}
