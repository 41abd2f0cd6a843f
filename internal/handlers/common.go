package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/adwizard/internal/contract"
	"github.com/lehigh-university-libraries/adwizard/internal/wizard"
)

// request bodies are small JSON documents or a single uploaded page
const maxBodyBytes = 10 * 1024 * 1024

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	type envelope struct {
		Data any `json:"data"`
	}
	writeJSON(w, status, &envelope{Data: data})
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	type envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	}
	if status >= http.StatusInternalServerError {
		slog.Error(message, "status", status)
	} else {
		slog.Warn(message, "status", status)
	}
	writeJSON(w, status, &envelope{Message: message, Status: status})
}

func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}

// writeErr maps wizard and contract errors onto status codes. Contract
// failures carry the message meant for the user.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contract.ErrMissingCredential):
		h.writeError(w, contract.UserMessage(err), http.StatusPreconditionFailed)
	case errors.Is(err, contract.ErrURLUnsupported):
		h.writeError(w, contract.UserMessage(err), http.StatusUnprocessableEntity)
	case errors.Is(err, contract.ErrExtraction),
		errors.Is(err, contract.ErrGeneration),
		errors.Is(err, contract.ErrRefinement),
		errors.Is(err, contract.ErrImageGeneration):
		h.writeError(w, contract.UserMessage(err), http.StatusBadGateway)
	case errors.Is(err, wizard.ErrInvalidPIN):
		h.writeError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, wizard.ErrInvalidForm):
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, wizard.ErrHistoryNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, wizard.ErrBusy),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrNoResult):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		h.writeError(w, "Internal server error: "+err.Error(), http.StatusInternalServerError)
	}
}
