package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/wizard"
)

// lockedState is all a caller without the PIN gets to see
type lockedState struct {
	Authenticated bool `json:"authenticated"`
	HasCredential bool `json:"hasCredential"`
}

// stateView is the session as the current caller may see it. Form, creatives
// and history stay hidden until the PIN gate is open.
func (h *Handler) stateView() any {
	s := h.wizard.State()
	if !s.Authenticated {
		return lockedState{Authenticated: false, HasCredential: s.HasCredential}
	}
	return s
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.stateView())
}

// respond writes the state after a successful mutation, or the error
func (h *Handler) respond(w http.ResponseWriter, status int, err error) {
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonResponse(w, status, h.stateView())
}

func (h *Handler) HandleGoal(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Goal models.Goal `json:"goal"`
	}
	if err := readJSON(w, r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK, h.wizard.SelectGoal(r.Context(), request.Goal))
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.wizard.Next(r.Context()))
}

func (h *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.wizard.Back(r.Context()))
}

func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	var info wizard.InfoUpdate
	if err := readJSON(w, r, &info); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK, h.wizard.ConfirmInfo(r.Context(), info))
}

func (h *Handler) HandleStyle(w http.ResponseWriter, r *http.Request) {
	var patch wizard.StylePatch
	if err := readJSON(w, r, &patch); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, http.StatusOK, h.wizard.UpdateStyle(r.Context(), patch))
}

// HandleGenerate answers 202 with the Loading state; the front-end polls
// /api/state until the phase settles.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	_, err := h.wizard.Generate(r.Context())
	h.respond(w, http.StatusAccepted, err)
}

func (h *Handler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Instruction string `json:"instruction"`
	}
	if err := readJSON(w, r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	_, err := h.wizard.Refine(r.Context(), request.Instruction)
	h.respond(w, http.StatusAccepted, err)
}

func (h *Handler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.wizard.Restart(r.Context()))
}
