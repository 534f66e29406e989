package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cadencelab/cadence/internal/domain/model"
)

// TrendsHandler handles trend comparison requests.
type TrendsHandler struct {
	deps Dependencies
}

// NewTrendsHandler creates a new trends handler.
func NewTrendsHandler(deps Dependencies) *TrendsHandler {
	return &TrendsHandler{deps: deps}
}

// trendPointBody mirrors the OpenAPI schema for chart points.
type trendPointBody struct {
	SessionID   string    `json:"session_id"`
	Label       string    `json:"label"`
	Timestamp   time.Time `json:"timestamp"`
	Value       float64   `json:"value"`
	StutterRate float64   `json:"stutter_rate"`
}

type trendResponse struct {
	OwnerID        string           `json:"owner_id"`
	Category       string           `json:"category"`
	Available      bool             `json:"available"`
	Direction      string           `json:"direction,omitempty"`
	AbsoluteChange float64          `json:"absolute_change,omitempty"`
	PercentChange  float64          `json:"percent_change,omitempty"`
	Points         []trendPointBody `json:"points"`
}

// HandleGetTrends handles GET /trends?owner=&category= requests.
func (h *TrendsHandler) HandleGetTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, errors.New("missing owner")))
		return
	}

	category := model.CategoryBlocking
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category = model.Category(raw)
		if !validCategory(category) {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown category %q", ErrBadRequest, raw))
			return
		}
	}

	trend, points, ok, err := h.deps.Trends(r.Context(), ownerID, category)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := trendResponse{
		OwnerID:   ownerID,
		Category:  string(category),
		Available: ok,
		Points:    make([]trendPointBody, len(points)),
	}
	for i, p := range points {
		resp.Points[i] = trendPointBody{
			SessionID:   p.SessionID,
			Label:       p.Label,
			Timestamp:   p.Timestamp,
			Value:       p.Percentages.Get(category),
			StutterRate: p.StutterRate,
		}
	}
	if ok {
		resp.Direction = string(trend.Direction)
		resp.AbsoluteChange = trend.AbsoluteChange
		resp.PercentChange = trend.PercentChange
	}
	writeJSON(w, http.StatusOK, resp)
}

func validCategory(c model.Category) bool {
	for _, known := range model.Categories() {
		if c == known {
			return true
		}
	}
	return false
}
