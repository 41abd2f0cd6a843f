package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/adwizard/internal/contract"
)

// HandleCreativeImage serves the decoded image of the creative at the
// zero-based index in the current result
func (h *Handler) HandleCreativeImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, "index must be a number", http.StatusBadRequest)
		return
	}

	creatives := h.wizard.State().Creatives
	if index < 0 || index >= len(creatives) {
		h.writeError(w, "Creative not found", http.StatusNotFound)
		return
	}
	encoded := creatives[index].ImageURL
	if encoded == "" {
		h.writeError(w, "Creative has no image", http.StatusNotFound)
		return
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		h.writeError(w, "Stored image is corrupt: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contract.ImageMIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
