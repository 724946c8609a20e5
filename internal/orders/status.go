package orders

import (
	"errors"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

var ErrInvalidStatus = errors.New("invalid order status")

// Orders move freely between pending and confirmed. Neither direction touches stock.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusPending: true},
	StatusConfirmed: {StatusPending: true, StatusConfirmed: true},
}

// CanTransition also lets imported orders with an unknown status move to a known one.
func CanTransition(from, to Status) bool {
	next, known := validNext[from]
	if !known {
		_, ok := validNext[to]
		return ok
	}
	return next[to]
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validNext[st]; !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}
