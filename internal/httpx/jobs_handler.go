package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-depot-engine/internal/dispatch"
)

type JobsHandler struct {
	Dispatcher *dispatch.Dispatcher
}

type jobActionReq struct {
	DriverID string `json:"driver_id"`
	Reason   string `json:"reason"`
}

type JobResp struct {
	ID            string            `json:"id"`
	OrderID       string            `json:"order_id"`
	DepositID     string            `json:"deposit_id"`
	Status        dispatch.Status   `json:"status"`
	DriverID      string            `json:"driver_id,omitempty"`
	AssignedAt    *time.Time        `json:"assigned_at,omitempty"`
	AcceptedAt    *time.Time        `json:"accepted_at,omitempty"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	RefusedBy     string            `json:"refused_by,omitempty"`
	RefusalReason string            `json:"refusal_reason,omitempty"`
	CancelReason  string            `json:"cancel_reason,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Snapshot      dispatch.Snapshot `json:"snapshot"`
	Version       int               `json:"version"`
}

func jobResp(j dispatch.Job) JobResp {
	return JobResp{
		ID: j.ID, OrderID: j.OrderID, DepositID: j.DepositID, Status: j.Status, DriverID: j.DriverID,
		AssignedAt: j.AssignedAt, AcceptedAt: j.AcceptedAt, StartedAt: j.StartedAt, CompletedAt: j.CompletedAt,
		RefusedBy: j.RefusedBy, RefusalReason: j.RefusalReason, CancelReason: j.CancelReason,
		FailureReason: j.FailureReason, Snapshot: j.Snapshot, Version: j.Version,
	}
}

func (h *JobsHandler) Register(r chi.Router) {
	r.Get("/jobs", h.list)
	r.Get("/jobs/{id}", h.get)
	r.Post("/jobs/{id}/assign", h.action(func(ctx context.Context, id string, req jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Assign(ctx, id, req.DriverID)
	}))
	r.Post("/jobs/{id}/accept", h.action(func(ctx context.Context, id string, req jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Accept(ctx, id, req.DriverID)
	}))
	r.Post("/jobs/{id}/refuse", h.action(func(ctx context.Context, id string, req jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Refuse(ctx, id, req.DriverID, req.Reason)
	}))
	r.Post("/jobs/{id}/start", h.action(func(ctx context.Context, id string, _ jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Start(ctx, id)
	}))
	r.Post("/jobs/{id}/complete", h.action(func(ctx context.Context, id string, _ jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Complete(ctx, id)
	}))
	r.Post("/jobs/{id}/fail", h.action(func(ctx context.Context, id string, req jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Fail(ctx, id, req.Reason)
	}))
	r.Post("/jobs/{id}/cancel", h.action(func(ctx context.Context, id string, req jobActionReq) (*dispatch.Job, error) {
		return h.Dispatcher.Cancel(ctx, id, req.Reason)
	}))
}

// action wraps one state-machine call. A nil job means the transition did
// not apply and is reported as a conflict.
func (h *JobsHandler) action(do func(ctx context.Context, id string, req jobActionReq) (*dispatch.Job, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobActionReq
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		j, err := do(ctx, chi.URLParam(r, "id"), req)
		if err != nil {
			writeError(w, err)
			return
		}
		if j == nil {
			writeError(w, errNoEffect)
			return
		}
		writeJSON(w, http.StatusOK, jobResp(*j))
	}
}

func (h *JobsHandler) get(w http.ResponseWriter, r *http.Request) {
	j, err := h.Dispatcher.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResp(j))
}

// list accepts ?status=WAITING,ASSIGNED; no filter returns every job.
func (h *JobsHandler) list(w http.ResponseWriter, r *http.Request) {
	var statuses []dispatch.Status
	for _, s := range strings.Split(r.URL.Query().Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, dispatch.Status(strings.ToUpper(s)))
		}
	}
	jobs, err := h.Dispatcher.List(r.Context(), statuses...)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]JobResp, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobResp(j))
	}
	writeJSON(w, http.StatusOK, out)
}
