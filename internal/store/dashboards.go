package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"hallynk/internal/auth"
	"hallynk/internal/booking"
)

const dashboardRecentBookings = 5

type StudentDashboard struct {
	Bookings map[booking.Status]int64
	Recent   []Booking
}

type OwnerDashboard struct {
	Hostels        int64
	Rooms          int64
	AvailableSlots int64
	Bookings       map[booking.Status]int64
	Revenue        decimal.Decimal
	Recent         []Booking
}

type AdminDashboard struct {
	Users               map[auth.Role]int64
	Hostels             int64
	PendingVerification int64
	Bookings            map[booking.Status]int64
	Revenue             decimal.Decimal
}

func (s *Store) StudentDashboard(ctx context.Context, studentID int64) (StudentDashboard, error) {
	scope := BookingScope{StudentID: studentID}
	counts, err := s.CountBookingsByStatus(ctx, scope)
	if err != nil {
		return StudentDashboard{}, err
	}
	recent, err := s.ListBookings(ctx, scope, dashboardRecentBookings, 0)
	if err != nil {
		return StudentDashboard{}, err
	}
	return StudentDashboard{Bookings: counts, Recent: recent}, nil
}

func (s *Store) OwnerDashboard(ctx context.Context, ownerID int64) (OwnerDashboard, error) {
	var d OwnerDashboard
	err := s.db.QueryRowContext(ctx, s.q(`
SELECT COUNT(DISTINCT h.id), COUNT(r.id), COALESCE(SUM(r.available), 0)
FROM hostels h
LEFT JOIN rooms r ON r.hostel_id = h.id
WHERE h.owner_id=?`), ownerID).Scan(&d.Hostels, &d.Rooms, &d.AvailableSlots)
	if err != nil {
		return OwnerDashboard{}, fmt.Errorf("owner inventory: %w", err)
	}

	scope := BookingScope{OwnerID: ownerID}
	if d.Bookings, err = s.CountBookingsByStatus(ctx, scope); err != nil {
		return OwnerDashboard{}, err
	}
	if d.Recent, err = s.ListBookings(ctx, scope, dashboardRecentBookings, 0); err != nil {
		return OwnerDashboard{}, err
	}
	if d.Revenue, err = s.revenue(ctx, ownerID); err != nil {
		return OwnerDashboard{}, err
	}
	return d, nil
}

func (s *Store) AdminDashboard(ctx context.Context) (AdminDashboard, error) {
	var d AdminDashboard
	var err error
	if d.Users, err = s.CountUsersByRole(ctx); err != nil {
		return AdminDashboard{}, err
	}
	if d.Hostels, d.PendingVerification, err = s.CountHostels(ctx); err != nil {
		return AdminDashboard{}, err
	}
	if d.Bookings, err = s.CountBookingsByStatus(ctx, BookingScope{}); err != nil {
		return AdminDashboard{}, err
	}
	if d.Revenue, err = s.revenue(ctx, 0); err != nil {
		return AdminDashboard{}, err
	}
	return d, nil
}

// revenue sums successful payments, optionally limited to one owner's
// hostels. Amounts are added in Go since SQLite stores them as text.
func (s *Store) revenue(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	query := `
SELECT p.amount
FROM payments p
JOIN bookings b ON b.id = p.booking_id`
	args := []any{}
	if ownerID > 0 {
		query += `
JOIN hostels h ON h.id = b.hostel_id
WHERE p.status=? AND h.owner_id=?`
		args = append(args, string(booking.PaymentSuccess), ownerID)
	} else {
		query += `
WHERE p.status=?`
		args = append(args, string(booking.PaymentSuccess))
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("revenue: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var a decimal.Decimal
		if err := rows.Scan(&a); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amounts = append(amounts, a)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}
	return sumGHS(amounts), nil
}
