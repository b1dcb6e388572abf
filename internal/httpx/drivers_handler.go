package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-depot-engine/internal/presence"
)

type DriversHandler struct {
	Tracker *presence.Tracker
}

type heartbeatReq struct {
	Lat    *float64        `json:"lat"`
	Lng    *float64        `json:"lng"`
	Status presence.Status `json:"status"`
}

func (h *DriversHandler) Register(r chi.Router) {
	r.Post("/drivers/{id}/heartbeat", h.heartbeat)
	r.Get("/drivers", h.all)
	r.Get("/drivers/available", h.available)
}

func (h *DriversHandler) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatReq
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	switch req.Status {
	case "", presence.StatusAvailable, presence.StatusPaused, presence.StatusBusy, presence.StatusOffline:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}
	p, err := h.Tracker.Heartbeat(r.Context(), chi.URLParam(r, "id"), req.Lat, req.Lng, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *DriversHandler) all(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Tracker.AllWithComputedStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *DriversHandler) available(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Tracker.Available(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
