package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Transitions the orchestrator may perform. Delivery progress lives in
// DeliveryStatus and never touches this table.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusCompleted: true},
	StatusInProgress: {StatusCompleted: true},
	StatusCompleted:  {StatusCancelled: true},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// DeliveryStatus mirrors the delivery job on the order. Only the dispatcher
// writes it, and it never changes Status.
type DeliveryStatus string

const (
	DeliveryNone      DeliveryStatus = ""
	DeliveryPending   DeliveryStatus = "PENDING_DELIVERY"
	DeliveryInTransit DeliveryStatus = "IN_DELIVERY"
	DeliveryDone      DeliveryStatus = "DELIVERED"
	DeliveryCancelled DeliveryStatus = "DELIVERY_CANCELLED"
)

type Mode string

const (
	ModeCounter  Mode = "COUNTER"
	ModeDelivery Mode = "DELIVERY"
)

// Modality tags how an item was sold. Only SALE, EXCHANGE and OTHER move
// stock; the rest (loans, gifts, ...) are carried on the order untouched.
type Modality string

const (
	ModalitySale     Modality = "SALE"
	ModalityExchange Modality = "EXCHANGE"
	ModalityOther    Modality = "OTHER"
	ModalityLoan     Modality = "LOAN"
	ModalityGift     Modality = "GIFT"
)

func (m Modality) MovesStock() bool {
	switch m {
	case ModalitySale, ModalityExchange, ModalityOther:
		return true
	}
	return false
}
