package order

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

var (
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrNoItems                = errors.New("order must contain at least one item")
	ErrInvalidQuantity        = errors.New("item quantity must be at least 1")
	ErrIncompleteAddress      = errors.New("shipping address is incomplete")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
)

// InvalidStateTransitionError reports the status an order was in when a
// transition was refused.
type InvalidStateTransitionError struct {
	Current Status
	Target  Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.Current, e.Target)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}
