// Package model contains domain models passed between layers.
package model

import "time"

// Status is the lifecycle state of a recording session. Transitions are
// monotonic: a session never regresses from analyzed back toward recording.
type Status string

// Session lifecycle states, in order.
const (
	StatusRecording Status = "recording"
	StatusCompleted Status = "completed"
	StatusAnalyzing Status = "analyzing"
	StatusAnalyzed  Status = "analyzed"
)

// rank orders statuses for monotonicity checks.
func (s Status) rank() int {
	switch s {
	case StatusRecording:
		return 0
	case StatusCompleted:
		return 1
	case StatusAnalyzing:
		return 2
	case StatusAnalyzed:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.rank() >= 0 }

// CanTransitionTo reports whether moving from s to next is allowed.
// Forward moves of one step are allowed, as is the analyze-failure
// rollback from analyzing to completed.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == StatusAnalyzing && next == StatusCompleted {
		return true
	}
	return next.rank() == s.rank()+1
}

// RecordingSession is one practice recording attempt. The ID is an opaque
// token generated at creation and immutable thereafter.
type RecordingSession struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	PromptID    string        `json:"prompt_id"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	BlobKey     string        `json:"blob_key,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// SessionPatch is a partial update applied to a stored session. Nil fields
// are left untouched.
type SessionPatch struct {
	Status      *Status
	CompletedAt *time.Time
	BlobKey     *string
	Duration    *time.Duration
}

// Apply copies the non-nil patch fields onto s.
func (p SessionPatch) Apply(s *RecordingSession) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.CompletedAt != nil {
		s.CompletedAt = p.CompletedAt
	}
	if p.BlobKey != nil {
		s.BlobKey = *p.BlobKey
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
}
