// Package repository defines the session store interface and errors.
package repository

import (
	"context"

	"github.com/cadencelab/cadence/internal/domain/model"
)

// Store provides read/write access to sessions and their analyses.
type Store interface {
	// CreateSession inserts a new session.
	// Returns ErrConflict if the id already exists.
	CreateSession(ctx context.Context, s model.RecordingSession) error

	// GetSession returns the session with the given id.
	// Returns ErrNotFound if the id is unknown.
	GetSession(ctx context.Context, id string) (model.RecordingSession, error)

	// UpdateSession applies a partial update to an existing session.
	// Returns ErrNotFound if the id is unknown.
	UpdateSession(ctx context.Context, id string, patch model.SessionPatch) error

	// SaveAnalysis stores the analysis record for a session, replacing any
	// previous record for the same session.
	SaveAnalysis(ctx context.Context, rec model.AnalysisRecord) error

	// GetAnalysis returns the analysis record for a session.
	// Returns ErrNotFound if no analysis exists for the id.
	GetAnalysis(ctx context.Context, sessionID string) (model.AnalysisRecord, error)

	// ListAnalyses returns all analysis records for an owner ordered by
	// AnalyzedAt ascending, oldest first.
	ListAnalyses(ctx context.Context, ownerID string) ([]model.AnalysisRecord, error)

	// CountSessions returns the number of sessions tracked.
	CountSessions(ctx context.Context) int

	// Close releases any held resources.
	Close() error
}
