package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cadencelab/cadence/internal/adapters/repository"
)

// maxUploadBytes bounds recording uploads; 10 minutes of 16-bit 44.1kHz
// stereo comes in just under this.
const maxUploadBytes = 256 << 20

// SessionsHandler handles session creation and the per-session routes.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// createSessionRequest mirrors the OpenAPI schema for POST /sessions.
type createSessionRequest struct {
	OwnerID  string `json:"owner_id"`
	PromptID string `json:"prompt_id"`
}

func (r createSessionRequest) validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return errors.New("missing owner_id")
	}
	return nil
}

// HandleSessions handles POST /sessions requests.
func (h *SessionsHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	s, err := h.deps.CreateSession(r.Context(), req.OwnerID, req.PromptID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// HandleSession routes /sessions/{id} and its subresources.
func (h *SessionsHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.handleGetSession(w, r, id)
	case sub == "audio" && r.Method == http.MethodPost:
		h.handleUpload(w, r, id)
	case sub == "analysis" && r.Method == http.MethodPost:
		h.handleRequestAnalysis(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleGetSession handles GET /sessions/{id} requests. Analyzed
// sessions carry their analysis inline.
func (h *SessionsHandler) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.deps.GetSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := toSessionResponse(s)
	if rec, err := h.deps.GetAnalysis(r.Context(), id); err == nil {
		resp.Analysis = toAnalysisResponse(rec)
	} else if !errors.Is(err, repository.ErrNotFound) {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUpload handles POST /sessions/{id}/audio requests. The body is
// the raw recording; Content-Type says what it is.
func (h *SessionsHandler) handleUpload(w http.ResponseWriter, r *http.Request, id string) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: read body: %w", ErrBadRequest, err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: empty body", ErrBadRequest))
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", errors.New("recording exceeds upload limit"))
		return
	}

	s, err := h.deps.UploadRecording(r.Context(), id, data, r.Header.Get("Content-Type"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// handleRequestAnalysis handles POST /sessions/{id}/analysis requests.
// Analysis runs asynchronously; poll GET /sessions/{id} for the result.
func (h *SessionsHandler) handleRequestAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.deps.RequestAnalysis(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "session_id": id})
}
