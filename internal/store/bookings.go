package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hallynk/internal/booking"
)

const bookingColumns = `b.id, b.reference, b.student_id, b.hostel_id, b.room_id, b.status, b.amount, b.note, b.created_at, b.updated_at`

const maxReferenceAttempts = 3

// BookingScope restricts booking listings. Zero fields do not filter.
type BookingScope struct {
	StudentID int64
	OwnerID   int64
	HostelID  int64
	Status    booking.Status
}

func scanBooking(row interface{ Scan(dest ...any) error }) (Booking, error) {
	var b Booking
	var status string
	if err := row.Scan(&b.ID, &b.Reference, &b.StudentID, &b.HostelID, &b.RoomID, &status, &b.Amount, &b.Note, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Booking{}, err
	}
	b.Status = booking.Status(status)
	return b, nil
}

// CreateBooking reserves nothing yet: the slot is consumed when the
// booking is confirmed. It still refuses rooms that are already full.
func (s *Store) CreateBooking(ctx context.Context, studentID int64, roomID int64, note string) (Booking, error) {
	if studentID <= 0 {
		return Booking{}, errors.New("student_id must not be empty")
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var hostelID int64
		var available int
		var room Room
		err := tx.QueryRowContext(ctx, s.q(`SELECT hostel_id, price, available FROM rooms WHERE id=?`+forUpdateClause(s.dialect)), roomID).
			Scan(&hostelID, &room.Price, &available)
		if err != nil {
			return err
		}
		var verified int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT verified FROM hostels WHERE id=?`), hostelID).Scan(&verified); err != nil {
			return err
		}
		if verified != 1 {
			return ErrHostelNotBookable
		}
		if available <= 0 {
			return ErrRoomFull
		}

		var dup int64
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM bookings WHERE student_id=? AND room_id=? AND status IN (?, ?)`),
			studentID, roomID, string(booking.StatusPending), string(booking.StatusConfirmed)).Scan(&dup); err != nil {
			return fmt.Errorf("check duplicate booking: %w", err)
		}
		if dup > 0 {
			return ErrDuplicateBooking
		}

		now := s.now()
		for attempt := 0; ; attempt++ {
			id, err = s.insertID(ctx, tx, `
INSERT INTO bookings(reference, student_id, hostel_id, room_id, status, amount, note, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				booking.NewReference(booking.BookingRefPrefix), studentID, hostelID, roomID, string(booking.StatusPending),
				FormatGHS(room.Price), strings.TrimSpace(note), now, now)
			if err == nil {
				return nil
			}
			if !isDuplicateKeyError(err) || attempt+1 >= maxReferenceAttempts {
				return fmt.Errorf("create booking: %w", err)
			}
		}
	})
	if err != nil {
		return Booking{}, err
	}
	return s.GetBookingByID(ctx, id)
}

func (s *Store) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, s.q(`SELECT `+bookingColumns+` FROM bookings b WHERE b.id=?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Booking{}, sql.ErrNoRows
		}
		return Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (s *Store) GetBookingByReference(ctx context.Context, ref string) (Booking, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	b, err := scanBooking(s.db.QueryRowContext(ctx, s.q(`SELECT `+bookingColumns+` FROM bookings b WHERE b.reference=?`), ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Booking{}, sql.ErrNoRows
		}
		return Booking{}, fmt.Errorf("get booking by reference: %w", err)
	}
	return b, nil
}

func (s *Store) ListBookings(ctx context.Context, scope BookingScope, limit, offset int) ([]Booking, error) {
	limit, offset = clampPage(limit, offset)
	query, args := bookingScopeQuery(`SELECT `+bookingColumns, scope)
	query += ` ORDER BY b.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CountBookingsByStatus(ctx context.Context, scope BookingScope) (map[booking.Status]int64, error) {
	scope.Status = ""
	query, args := bookingScopeQuery(`SELECT b.status, COUNT(1)`, scope)
	query += ` GROUP BY b.status`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	defer rows.Close()

	out := make(map[booking.Status]int64, len(booking.AllStatuses))
	for _, st := range booking.AllStatuses {
		out[st] = 0
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan booking count: %w", err)
		}
		out[booking.Status(status)] += n
	}
	return out, rows.Err()
}

func bookingScopeQuery(selectClause string, scope BookingScope) (string, []any) {
	query := selectClause + ` FROM bookings b`
	var where []string
	var args []any
	if scope.OwnerID > 0 {
		query += ` JOIN hostels h ON h.id = b.hostel_id`
		where = append(where, `h.owner_id=?`)
		args = append(args, scope.OwnerID)
	}
	if scope.StudentID > 0 {
		where = append(where, `b.student_id=?`)
		args = append(args, scope.StudentID)
	}
	if scope.HostelID > 0 {
		where = append(where, `b.hostel_id=?`)
		args = append(args, scope.HostelID)
	}
	if scope.Status != "" {
		where = append(where, `b.status=?`)
		args = append(args, string(scope.Status))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	return query, args
}

func (s *Store) TransitionBooking(ctx context.Context, id int64, to booking.Status) (Booking, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.transitionBookingTx(ctx, tx, id, to)
	})
	if err != nil {
		return Booking{}, err
	}
	return s.GetBookingByID(ctx, id)
}

// transitionBookingTx moves a booking and keeps rooms.available in step:
// CONFIRMED takes a slot, leaving CONFIRMED gives it back.
func (s *Store) transitionBookingTx(ctx context.Context, tx *sql.Tx, id int64, to booking.Status) error {
	var roomID int64
	var raw string
	if err := tx.QueryRowContext(ctx, s.q(`SELECT room_id, status FROM bookings WHERE id=?`+forUpdateClause(s.dialect)), id).Scan(&roomID, &raw); err != nil {
		return err
	}
	from := booking.Status(raw)
	if err := booking.CheckTransition(from, to); err != nil {
		return err
	}

	switch {
	case to == booking.StatusConfirmed:
		var available int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT available FROM rooms WHERE id=?`+forUpdateClause(s.dialect)), roomID).Scan(&available); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if available <= 0 {
			return ErrRoomFull
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE rooms SET available=available-1, updated_at=? WHERE id=?`), s.now(), roomID); err != nil {
			return fmt.Errorf("take room slot: %w", err)
		}
	case from == booking.StatusConfirmed:
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE rooms SET available=available+1, updated_at=? WHERE id=? AND available < capacity`), s.now(), roomID); err != nil {
			return fmt.Errorf("release room slot: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, s.q(`UPDATE bookings SET status=?, updated_at=? WHERE id=? AND status=?`), string(to), s.now(), id, string(from))
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: booking %d changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}
