package handlers

import (
	"net/http"
	"strings"
)

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		PIN string `json:"pin"`
	}
	if err := readJSON(w, r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.wizard.Login(r.Context(), request.PIN); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, h.stateView())
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.Logout(r.Context()); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, h.stateView())
}

func (h *Handler) HandleSetCredential(w http.ResponseWriter, r *http.Request) {
	var request struct {
		APIKey string `json:"apiKey"`
	}
	if err := readJSON(w, r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(request.APIKey) == "" {
		h.writeError(w, "apiKey is required", http.StatusBadRequest)
		return
	}
	if err := h.wizard.SetCredential(r.Context(), request.APIKey); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, h.stateView())
}

func (h *Handler) HandleClearCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.wizard.ClearCredential(r.Context()); err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, h.stateView())
}
