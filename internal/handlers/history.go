package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.wizard.State().History)
}

func (h *Handler) HandleLoadHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.respond(w, http.StatusOK, h.wizard.LoadFromHistory(r.Context(), id))
}

func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.wizard.ClearHistory(r.Context()))
}
