package api

import (
	"net/http"
	"strconv"
	"strings"
)

// BlobsHandler streams stored recordings to signed-URL holders.
type BlobsHandler struct {
	deps Dependencies
}

// NewBlobsHandler creates a new blobs handler.
func NewBlobsHandler(deps Dependencies) *BlobsHandler {
	return &BlobsHandler{deps: deps}
}

// HandleGetBlob handles GET /blobs/{key}?expires=&sig= requests. Access
// is by valid signature only; there is no authenticated fallback.
func (h *BlobsHandler) HandleGetBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/blobs/")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	if err := h.deps.VerifyBlobSignature(key, q.Get("expires"), q.Get("sig")); err != nil {
		writeError(w, http.StatusForbidden, "forbidden", err)
		return
	}

	data, contentType, err := h.deps.OpenBlob(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=0")
	_, _ = w.Write(data)
}
