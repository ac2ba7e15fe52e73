// Package booking defines booking and payment statuses and the transitions allowed between them.
package booking

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

var bookingTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, v := range AllStatuses {
		if v == s {
			return s, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Active bookings hold (or are about to hold) a slot in the room.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func CanTransition(from, to Status) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: booking %s -> %s", ErrInvalidTransition, from, to)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentSuccess, PaymentFailed},
	PaymentSuccess: {PaymentRefunded},
}

func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch s := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentRefunded:
		return s, true
	}
	return "", false
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckPaymentTransition(from, to PaymentStatus) error {
	if CanTransitionPayment(from, to) {
		return nil
	}
	return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, from, to)
}

type PaymentMethod string

const (
	MethodMoMo PaymentMethod = "MOMO"
	MethodCard PaymentMethod = "CARD"
	MethodBank PaymentMethod = "BANK"
	MethodCash PaymentMethod = "CASH"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw))); m {
	case MethodMoMo, MethodCard, MethodBank, MethodCash:
		return m, true
	}
	return "", false
}
