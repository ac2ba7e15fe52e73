package store

import (
	"database/sql"
	"errors"
	"fmt"

	"hallynk/internal/booking"
)

var (
	// ErrNotFound is sql.ErrNoRows so callers can test either.
	ErrNotFound = sql.ErrNoRows

	ErrEmailTaken          = errors.New("email already registered")
	ErrRoomFull            = errors.New("room has no available slots")
	ErrDuplicateBooking    = errors.New("an active booking for this room already exists")
	ErrHasActiveBookings   = errors.New("active bookings reference this record")
	ErrAmountMismatch      = errors.New("payment amount does not match the booking amount")
	ErrBookingNotPayable   = errors.New("booking does not accept payments in its current status")
	ErrAlreadyPaid         = errors.New("booking already has a successful payment")
	ErrInvalidTransition   = booking.ErrInvalidTransition
	ErrHostelNotBookable   = errors.New("hostel is not verified for booking")
	ErrCapacityBelowActive = errors.New("capacity is below the number of confirmed bookings")
	ErrForbidden           = errors.New("record belongs to another account")
	ErrRegistrationClosed  = errors.New("registration is closed")

	errBootstrapClaimed = errors.New("bootstrap admin already claimed")
)

// InputError is a value the store refused before touching the database.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func invalidf(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}
