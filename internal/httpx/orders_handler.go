package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/checkout"
	"github.com/ariefcatur/go-depot-engine/internal/inventory"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

// OrderStore is what the order endpoints need from persistence.
type OrderStore interface {
	LoadOrder(ctx context.Context, orderID string) (orders.Order, error)
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
	LoadPaymentMethods(ctx context.Context) (catalog.PaymentMethods, error)
	LoadBalances(ctx context.Context, depositID string) ([]inventory.Balance, error)
	Apply(ctx context.Context, res checkout.Result) error
	CancelTitlesForOrder(ctx context.Context, orderID string) (int64, error)
}

type EventPublisher interface {
	PublishTo(topic string, env orders.Envelope) error
}

type OrdersHandler struct {
	Store        OrderStore
	Orchestrator *checkout.Orchestrator
	Events       EventPublisher
	Service      string
	Log          *zap.Logger
}

type OrderResultResp struct {
	OrderID         string        `json:"order_id"`
	Status          orders.Status `json:"status"`
	PreviousStatus  orders.Status `json:"previous_status"`
	StockMovements  int           `json:"stock_movements"`
	CashMovements   int           `json:"cash_movements"`
	Titles          int           `json:"titles"`
	TitlesCancelled int64         `json:"titles_cancelled,omitempty"`
	NeedsDispatch   bool          `json:"needs_dispatch"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders/{id}/complete", h.complete)
	r.Post("/orders/{id}/cancel", h.cancel)
}

func (h *OrdersHandler) complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, c, methods, ok := h.loadSnapshot(ctx, w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	balances, err := h.Store.LoadBalances(ctx, o.DepositID)
	if err != nil {
		writeError(w, err)
		return
	}

	res := h.Orchestrator.Complete(o, balances, c, methods)
	h.finish(ctx, w, r, res)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, c, methods, ok := h.loadSnapshot(ctx, w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	res := h.Orchestrator.Cancel(o, c, methods)
	h.finish(ctx, w, r, res)
}

func (h *OrdersHandler) loadSnapshot(ctx context.Context, w http.ResponseWriter, id string) (orders.Order, *catalog.Catalog, catalog.PaymentMethods, bool) {
	o, err := h.Store.LoadOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return orders.Order{}, nil, nil, false
	}
	c, err := h.Store.LoadCatalog(ctx)
	if err != nil {
		writeError(w, err)
		return orders.Order{}, nil, nil, false
	}
	methods, err := h.Store.LoadPaymentMethods(ctx)
	if err != nil {
		writeError(w, err)
		return orders.Order{}, nil, nil, false
	}
	return o, c, methods, true
}

// finish persists a successful result, closes titles on cancel, and
// announces the result on the bus.
func (h *OrdersHandler) finish(ctx context.Context, w http.ResponseWriter, r *http.Request, res checkout.Result) {
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": res.Errors})
		return
	}
	if err := h.Store.Apply(ctx, res); err != nil {
		writeError(w, err)
		return
	}

	resp := OrderResultResp{
		OrderID:        res.Order.ID,
		Status:         res.Order.Status,
		PreviousStatus: res.PreviousStatus,
		StockMovements: len(res.StockMovements),
		CashMovements:  len(res.CashMovements),
		Titles:         len(res.Titles),
		NeedsDispatch:  res.NeedsDispatch(),
	}
	if res.Order.Status == orders.StatusCancelled {
		n, err := h.Store.CancelTitlesForOrder(ctx, res.Order.ID)
		if err != nil {
			// ledger sudah commit; title bisa di-cancel ulang nanti
			h.log().Error("cancel titles failed", zap.String("order_id", res.Order.ID), zap.Error(err))
		}
		resp.TitlesCancelled = n
	}

	if topic, env, ok := res.Event(h.Service, r.Header.Get("X-Request-Id")); ok && h.Events != nil {
		if err := h.Events.PublishTo(topic, env); err != nil {
			h.log().Warn("publish order event failed", zap.String("order_id", res.Order.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
