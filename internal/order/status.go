package order

import "github.com/andreasstove999/marketplace-backend/internal/apperr"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the forward-only lifecycle graph. Delivered and
// cancelled are terminal; cancellation is reachable from pending and
// processing only. Admin updates go through the same table.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", apperr.New(apperr.KindInvalidStatus, "invalid status %q", s)
	}
	return st, nil
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether a user may still cancel an order in this
// status.
func (s Status) Cancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}
