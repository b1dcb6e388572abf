package dispatch

type Status string

const (
	StatusWaiting        Status = "WAITING"
	StatusAssigned       Status = "ASSIGNED"
	StatusAccepted       Status = "ACCEPTED"
	StatusEnRoute        Status = "EN_ROUTE"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusReturnedFailed Status = "RETURNED_FAILED"
)

var validNext = map[Status]map[Status]bool{
	StatusWaiting:        {StatusAssigned: true, StatusCancelled: true},
	StatusAssigned:       {StatusAccepted: true, StatusWaiting: true, StatusCancelled: true},
	StatusAccepted:       {StatusEnRoute: true, StatusCancelled: true},
	StatusEnRoute:        {StatusDelivered: true, StatusReturnedFailed: true, StatusCancelled: true},
	StatusReturnedFailed: {StatusAssigned: true, StatusCancelled: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Assignable states accept a driver. A failed return goes back to the pool.
func (s Status) Assignable() bool {
	return s == StatusWaiting || s == StatusReturnedFailed
}
