package catalog

import "github.com/shopspring/decimal"

type Timing string

const (
	TimingImmediate Timing = "IMMEDIATE"
	TimingDeferred  Timing = "DEFERRED"
)

func (t Timing) Valid() bool {
	return t == TimingImmediate || t == TimingDeferred
}

const DefaultTermDays = 30

type PaymentMethod struct {
	ID                  string
	Name                string
	Timing              Timing
	GeneratesReceivable bool
	FeePercent          decimal.Decimal
	TermDays            int
}

// CreatesTitle reports whether a payment through this method is booked as a
// receivable title instead of a cash entry.
func (m PaymentMethod) CreatesTitle() bool {
	return m.Timing == TimingDeferred && m.GeneratesReceivable
}

func (m PaymentMethod) Term() int {
	if m.TermDays <= 0 {
		return DefaultTermDays
	}
	return m.TermDays
}

type PaymentMethods map[string]PaymentMethod

func NewPaymentMethods(ms []PaymentMethod) PaymentMethods {
	out := make(PaymentMethods, len(ms))
	for _, m := range ms {
		out[m.ID] = m
	}
	return out
}

func (pm PaymentMethods) Get(id string) (PaymentMethod, bool) {
	m, ok := pm[id]
	return m, ok
}
