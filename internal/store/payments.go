package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hallynk/internal/booking"
)

// PaymentInput records a payment made outside Hallynk (mobile money, card
// terminal, bank transfer or cash). No gateway is contacted.
type PaymentInput struct {
	Amount      decimal.Decimal
	Method      booking.PaymentMethod
	ProviderRef string
}

const paymentColumns = `id, reference, booking_id, amount, method, provider_ref, status, paid_at, created_at, updated_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var p Payment
	var method, status string
	var providerRef sql.NullString
	var paidAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Reference, &p.BookingID, &p.Amount, &method, &providerRef, &status, &paidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payment{}, err
	}
	p.Method = booking.PaymentMethod(method)
	p.Status = booking.PaymentStatus(status)
	if providerRef.Valid {
		v := providerRef.String
		p.ProviderRef = &v
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}

func (s *Store) CreatePayment(ctx context.Context, bookingID int64, in PaymentInput) (Payment, error) {
	if _, ok := booking.ParsePaymentMethod(string(in.Method)); !ok {
		return Payment{}, invalidf("invalid payment method %q", in.Method)
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var raw string
		var amount decimal.Decimal
		if err := tx.QueryRowContext(ctx, s.q(`SELECT status, amount FROM bookings WHERE id=?`+forUpdateClause(s.dialect)), bookingID).Scan(&raw, &amount); err != nil {
			return err
		}
		if !booking.Status(raw).Active() {
			return ErrBookingNotPayable
		}
		if !amount.Equal(in.Amount) {
			return ErrAmountMismatch
		}
		paid, err := s.hasSuccessfulPaymentTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if paid {
			return ErrAlreadyPaid
		}

		var providerRef any
		if ref := strings.TrimSpace(in.ProviderRef); ref != "" {
			providerRef = ref
		}
		now := s.now()
		for attempt := 0; ; attempt++ {
			id, err = s.insertID(ctx, tx, `
INSERT INTO payments(reference, booking_id, amount, method, provider_ref, status, paid_at, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
				booking.NewReference(booking.PaymentRefPrefix), bookingID, FormatGHS(in.Amount), string(in.Method), providerRef,
				string(booking.PaymentPending), now, now)
			if err == nil {
				return nil
			}
			if !isDuplicateKeyError(err) || attempt+1 >= maxReferenceAttempts {
				return fmt.Errorf("create payment: %w", err)
			}
		}
	})
	if err != nil {
		return Payment{}, err
	}
	return s.GetPaymentByID(ctx, id)
}

func (s *Store) GetPaymentByID(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, s.q(`SELECT `+paymentColumns+` FROM payments WHERE id=?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, sql.ErrNoRows
		}
		return Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (s *Store) ListPaymentsByBooking(ctx context.Context, bookingID int64) ([]Payment, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+paymentColumns+` FROM payments WHERE booking_id=? ORDER BY id ASC`), bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TransitionPayment settles a payment. SUCCESS confirms a pending booking
// and REFUNDED cancels an active one, both inside the same transaction.
func (s *Store) TransitionPayment(ctx context.Context, id int64, to booking.PaymentStatus, providerRef string) (Payment, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var bookingID int64
		var raw string
		if err := tx.QueryRowContext(ctx, s.q(`SELECT booking_id, status FROM payments WHERE id=?`+forUpdateClause(s.dialect)), id).Scan(&bookingID, &raw); err != nil {
			return err
		}
		from := booking.PaymentStatus(raw)
		if err := booking.CheckPaymentTransition(from, to); err != nil {
			return err
		}

		var bookingStatus string
		if err := tx.QueryRowContext(ctx, s.q(`SELECT status FROM bookings WHERE id=?`+forUpdateClause(s.dialect)), bookingID).Scan(&bookingStatus); err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}

		now := s.now()
		set := `status=?, updated_at=?`
		args := []any{string(to), now}
		if to == booking.PaymentSuccess {
			if !booking.Status(bookingStatus).Active() {
				return ErrBookingNotPayable
			}
			paid, err := s.hasSuccessfulPaymentTx(ctx, tx, bookingID)
			if err != nil {
				return err
			}
			if paid {
				return ErrAlreadyPaid
			}
			set += `, paid_at=?`
			args = append(args, now)
		}
		if ref := strings.TrimSpace(providerRef); ref != "" {
			set += `, provider_ref=?`
			args = append(args, ref)
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE payments SET `+set+` WHERE id=?`), args...); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		switch {
		case to == booking.PaymentSuccess && booking.Status(bookingStatus) == booking.StatusPending:
			return s.transitionBookingTx(ctx, tx, bookingID, booking.StatusConfirmed)
		case to == booking.PaymentRefunded && booking.Status(bookingStatus).Active():
			return s.transitionBookingTx(ctx, tx, bookingID, booking.StatusCancelled)
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return s.GetPaymentByID(ctx, id)
}

func (s *Store) hasSuccessfulPaymentTx(ctx context.Context, tx *sql.Tx, bookingID int64) (bool, error) {
	var n int64
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM payments WHERE booking_id=? AND status=?`), bookingID, string(booking.PaymentSuccess)).Scan(&n); err != nil {
		return false, fmt.Errorf("check payments: %w", err)
	}
	return n > 0, nil
}
