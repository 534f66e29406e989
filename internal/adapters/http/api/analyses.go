package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AnalysesHandler handles analysis listing requests.
type AnalysesHandler struct {
	deps Dependencies
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps Dependencies) *AnalysesHandler {
	return &AnalysesHandler{deps: deps}
}

// analysisItem mirrors the OpenAPI schema for GET /analyses entries.
type analysisItem struct {
	SessionID   string          `json:"session_id"`
	PromptID    string          `json:"prompt_id,omitempty"`
	DurationSec float64         `json:"duration_sec"`
	AnalyzedAt  time.Time       `json:"analyzed_at"`
	Percentages percentagesBody `json:"percentages"`
	StutterRate float64         `json:"stutter_rate"`
	TotalUnits  float64         `json:"total_units"`
	AudioURL    string          `json:"audio_url,omitempty"`
	Waveform    []float64       `json:"waveform,omitempty"`
}

type analysesResponse struct {
	OwnerID  string         `json:"owner_id"`
	Analyses []analysisItem `json:"analyses"`
}

// HandleListAnalyses handles GET /analyses?owner= requests.
func (h *AnalysesHandler) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, errors.New("missing owner")))
		return
	}

	views, err := h.deps.ListAnalyses(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]analysisItem, len(views))
	for i, v := range views {
		items[i] = analysisItem{
			SessionID:   v.SessionID,
			PromptID:    v.PromptID,
			DurationSec: v.Duration.Seconds(),
			AnalyzedAt:  v.AnalyzedAt,
			Percentages: toPercentagesBody(v.Percentages),
			StutterRate: v.StutterRate,
			TotalUnits:  v.TotalUnits,
			AudioURL:    v.AudioURL,
			Waveform:    v.Waveform,
		}
	}
	writeJSON(w, http.StatusOK, analysesResponse{OwnerID: ownerID, Analyses: items})
}
