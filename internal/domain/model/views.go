package model

import "time"

// AnalysisView is the read shape for listing endpoints: the analysis
// record joined with its session's playback details.
type AnalysisView struct {
	SessionID   string
	PromptID    string
	Duration    time.Duration
	AnalyzedAt  time.Time
	Percentages Percentages
	StutterRate float64
	TotalUnits  float64
	AudioURL    string
	Waveform    []float64
}
