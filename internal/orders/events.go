package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCompleted     = "OrderCompleted"
	EventOrderCancelled     = "OrderCancelled"
	EventDeliveryJobUpdated = "DeliveryJobUpdated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Modality    Modality        `json:"modality"`
}

type PaymentLine struct {
	MethodID   string          `json:"method_id"`
	MethodName string          `json:"method_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// OrderPayload carries enough of the order for downstream consumers to act
// without re-reading it (the dispatcher builds its job snapshot from it).
type OrderPayload struct {
	OrderID      string          `json:"order_id"`
	DepositID    string          `json:"deposit_id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Address      string          `json:"address"`
	Mode         Mode            `json:"mode"`
	Status       Status          `json:"status"`
	Items        []ItemLine      `json:"items"`
	Payments     []PaymentLine   `json:"payments"`
	Total        decimal.Decimal `json:"total"`
	Movements    int             `json:"movements"`
	CashEntries  int             `json:"cash_entries"`
	Titles       int             `json:"titles"`
}

func PayloadFromOrder(o Order) OrderPayload {
	p := OrderPayload{
		OrderID:      o.ID,
		DepositID:    o.DepositID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		Address:      o.Address,
		Mode:         o.Mode,
		Status:       o.Status,
		Total:        o.Total,
		Items:        make([]ItemLine, 0, len(o.Items)),
		Payments:     make([]PaymentLine, 0, len(o.Payments)),
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, ItemLine{
			ProductID: it.ProductID, ProductName: it.ProductName,
			Qty: it.Quantity, UnitPrice: it.UnitPrice, Modality: it.Modality,
		})
	}
	for _, pm := range o.Payments {
		p.Payments = append(p.Payments, PaymentLine{MethodID: pm.MethodID, MethodName: pm.MethodName, Amount: pm.Amount})
	}
	return p
}

// ToOrder rebuilds the order fields the payload carries. History and ledger
// details are not part of the event.
func (p OrderPayload) ToOrder() Order {
	o := Order{
		ID:           p.OrderID,
		DepositID:    p.DepositID,
		CustomerID:   p.CustomerID,
		CustomerName: p.CustomerName,
		Address:      p.Address,
		Mode:         p.Mode,
		Status:       p.Status,
		Total:        p.Total,
	}
	for _, it := range p.Items {
		o.Items = append(o.Items, OrderItem{
			ProductID: it.ProductID, ProductName: it.ProductName,
			Quantity: it.Qty, UnitPrice: it.UnitPrice, Modality: it.Modality,
		})
	}
	for _, pm := range p.Payments {
		o.Payments = append(o.Payments, Payment{MethodID: pm.MethodID, MethodName: pm.MethodName, Amount: pm.Amount})
	}
	return o
}

type DeliveryJobPayload struct {
	JobID     string `json:"job_id"`
	OrderID   string `json:"order_id"`
	DepositID string `json:"deposit_id"`
	Status    string `json:"status"`
	DriverID  string `json:"driver_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
