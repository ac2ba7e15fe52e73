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

var roomTypes = []RoomType{RoomSingle, RoomDouble, RoomTriple, RoomQuad}

func ParseRoomType(raw string) (RoomType, bool) {
	t := RoomType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, v := range roomTypes {
		if v == t {
			return t, true
		}
	}
	return "", false
}

// RoomInput describes a room offer. Available slots are derived from
// Capacity minus the confirmed bookings on the room.
type RoomInput struct {
	Type     RoomType
	Price    decimal.Decimal
	Capacity int
}

func (in RoomInput) validate() error {
	if _, ok := ParseRoomType(string(in.Type)); !ok {
		return invalidf("invalid room type %q", in.Type)
	}
	if !in.Price.IsPositive() {
		return invalidf("price must be greater than zero")
	}
	if in.Capacity <= 0 {
		return invalidf("capacity must be greater than zero")
	}
	return nil
}

const roomColumns = `id, hostel_id, room_type, price, capacity, available, created_at, updated_at`

func scanRoom(row interface{ Scan(dest ...any) error }) (Room, error) {
	var r Room
	var typ string
	if err := row.Scan(&r.ID, &r.HostelID, &typ, &r.Price, &r.Capacity, &r.Available, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Room{}, err
	}
	r.Type = RoomType(typ)
	return r, nil
}

func (s *Store) CreateRoom(ctx context.Context, hostelID int64, in RoomInput) (Room, error) {
	if err := in.validate(); err != nil {
		return Room{}, err
	}
	if _, err := s.GetHostelByID(ctx, hostelID); err != nil {
		return Room{}, err
	}
	now := s.now()
	id, err := s.insertID(ctx, s.db, `
INSERT INTO rooms(hostel_id, room_type, price, capacity, available, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
		hostelID, string(in.Type), FormatGHS(in.Price), in.Capacity, in.Capacity, now, now)
	if err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}
	return s.GetRoomByID(ctx, id)
}

func (s *Store) GetRoomByID(ctx context.Context, id int64) (Room, error) {
	r, err := scanRoom(s.db.QueryRowContext(ctx, s.q(`SELECT `+roomColumns+` FROM rooms WHERE id=?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Room{}, sql.ErrNoRows
		}
		return Room{}, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

func (s *Store) ListRoomsByHostel(ctx context.Context, hostelID int64) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+roomColumns+` FROM rooms WHERE hostel_id=? ORDER BY id ASC`), hostelID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRoom changes type, price and capacity. The price of existing
// bookings is fixed at booking time and is not touched.
func (s *Store) UpdateRoom(ctx context.Context, id int64, in RoomInput) (Room, error) {
	if err := in.validate(); err != nil {
		return Room{}, err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var hostelID int64
		if err := tx.QueryRowContext(ctx, s.q(`SELECT hostel_id FROM rooms WHERE id=?`+forUpdateClause(s.dialect)), id).Scan(&hostelID); err != nil {
			return err
		}
		confirmed, err := s.countRoomBookingsTx(ctx, tx, id, booking.StatusConfirmed)
		if err != nil {
			return err
		}
		if int64(in.Capacity) < confirmed {
			return ErrCapacityBelowActive
		}
		available := in.Capacity - int(confirmed)
		if _, err := tx.ExecContext(ctx, s.q(`
UPDATE rooms SET room_type=?, price=?, capacity=?, available=?, updated_at=? WHERE id=?`),
			string(in.Type), FormatGHS(in.Price), in.Capacity, available, s.now(), id); err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		return nil
	})
	if err != nil {
		return Room{}, err
	}
	return s.GetRoomByID(ctx, id)
}

func (s *Store) DeleteRoom(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var active int64
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM bookings WHERE room_id=? AND status IN (?, ?)`),
			id, string(booking.StatusPending), string(booking.StatusConfirmed)).Scan(&active); err != nil {
			return fmt.Errorf("count active bookings: %w", err)
		}
		if active > 0 {
			return ErrHasActiveBookings
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM payments WHERE booking_id IN (SELECT id FROM bookings WHERE room_id=?)`), id); err != nil {
			return fmt.Errorf("delete room payments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM bookings WHERE room_id=?`), id); err != nil {
			return fmt.Errorf("delete room bookings: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM rooms WHERE id=?`), id)
		if err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (s *Store) countRoomBookingsTx(ctx context.Context, tx *sql.Tx, roomID int64, status booking.Status) (int64, error) {
	var n int64
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM bookings WHERE room_id=? AND status=?`), roomID, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count room bookings: %w", err)
	}
	return n, nil
}
