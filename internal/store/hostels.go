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

type HostelInput struct {
	Name        string
	Description string
	University  string
	Location    string
	Amenities   []string
}

func (in HostelInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidf("hostel name must not be empty")
	}
	if strings.TrimSpace(in.University) == "" {
		return invalidf("university must not be empty")
	}
	return nil
}

// HostelFilter drives the public search. Zero values disable a criterion.
type HostelFilter struct {
	Query        string
	University   string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	RoomType     RoomType
	Amenity      string
	OnlyVerified bool
	Limit        int
	Offset       int
}

type HostelListing struct {
	Hostel         Hostel
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	AvailableSlots int
	Rooms          []Room
}

const hostelColumns = `id, owner_id, name, description, university, location, amenities, verified, created_at, updated_at`

type hostelRow struct {
	Hostel
	amenitiesDoc string
}

func scanHostel(row interface{ Scan(dest ...any) error }) (hostelRow, error) {
	var h hostelRow
	var verified int
	err := row.Scan(&h.ID, &h.OwnerID, &h.Name, &h.Description, &h.University, &h.Location, &h.amenitiesDoc, &verified, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return hostelRow{}, err
	}
	h.Verified = verified == 1
	h.Amenities = decodeAmenities(h.amenitiesDoc)
	return h, nil
}

func (s *Store) CreateHostel(ctx context.Context, ownerID int64, in HostelInput) (Hostel, error) {
	if ownerID <= 0 {
		return Hostel{}, errors.New("owner_id must not be empty")
	}
	if err := in.validate(); err != nil {
		return Hostel{}, err
	}
	doc, err := encodeAmenities(in.Amenities)
	if err != nil {
		return Hostel{}, fmt.Errorf("encode amenities: %w", err)
	}
	now := s.now()
	id, err := s.insertID(ctx, s.db, `
INSERT INTO hostels(owner_id, name, description, university, location, amenities, verified, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		ownerID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), strings.TrimSpace(in.University), strings.TrimSpace(in.Location), doc, now, now)
	if err != nil {
		return Hostel{}, fmt.Errorf("create hostel: %w", err)
	}
	return s.GetHostelByID(ctx, id)
}

func (s *Store) GetHostelByID(ctx context.Context, id int64) (Hostel, error) {
	h, err := scanHostel(s.db.QueryRowContext(ctx, s.q(`SELECT `+hostelColumns+` FROM hostels WHERE id=?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Hostel{}, sql.ErrNoRows
		}
		return Hostel{}, fmt.Errorf("get hostel: %w", err)
	}
	return h.Hostel, nil
}

func (s *Store) UpdateHostel(ctx context.Context, id int64, in HostelInput) (Hostel, error) {
	if err := in.validate(); err != nil {
		return Hostel{}, err
	}
	doc, err := encodeAmenities(in.Amenities)
	if err != nil {
		return Hostel{}, fmt.Errorf("encode amenities: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.q(`
UPDATE hostels
SET name=?, description=?, university=?, location=?, amenities=?, updated_at=?
WHERE id=?`),
		strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), strings.TrimSpace(in.University), strings.TrimSpace(in.Location), doc, s.now(), id)
	if err != nil {
		return Hostel{}, fmt.Errorf("update hostel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Hostel{}, sql.ErrNoRows
	}
	return s.GetHostelByID(ctx, id)
}

func (s *Store) SetHostelVerified(ctx context.Context, id int64, verified bool) error {
	v := 0
	if verified {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE hostels SET verified=?, updated_at=? WHERE id=?`), v, s.now(), id)
	if err != nil {
		return fmt.Errorf("set hostel verified: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteHostel removes the hostel with its rooms and booking history.
// Hostels with pending or confirmed bookings cannot be deleted.
func (s *Store) DeleteHostel(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var active int64
		if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM bookings WHERE hostel_id=? AND status IN (?, ?)`),
			id, string(booking.StatusPending), string(booking.StatusConfirmed)).Scan(&active); err != nil {
			return fmt.Errorf("count active bookings: %w", err)
		}
		if active > 0 {
			return ErrHasActiveBookings
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM payments WHERE booking_id IN (SELECT id FROM bookings WHERE hostel_id=?)`), id); err != nil {
			return fmt.Errorf("delete hostel payments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM bookings WHERE hostel_id=?`), id); err != nil {
			return fmt.Errorf("delete hostel bookings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM rooms WHERE hostel_id=?`), id); err != nil {
			return fmt.Errorf("delete hostel rooms: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM hostels WHERE id=?`), id)
		if err != nil {
			return fmt.Errorf("delete hostel: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (s *Store) ListHostelsByOwner(ctx context.Context, ownerID int64) ([]Hostel, error) {
	return s.listHostels(ctx, `SELECT `+hostelColumns+` FROM hostels WHERE owner_id=? ORDER BY id DESC`, ownerID)
}

// ListUnverifiedHostels feeds the admin verification queue, oldest first.
func (s *Store) ListUnverifiedHostels(ctx context.Context, limit int) ([]Hostel, error) {
	limit, _ = clampPage(limit, 0)
	return s.listHostels(ctx, `SELECT `+hostelColumns+` FROM hostels WHERE verified=0 ORDER BY id ASC LIMIT ?`, limit)
}

func (s *Store) listHostels(ctx context.Context, query string, args ...any) ([]Hostel, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list hostels: %w", err)
	}
	defer rows.Close()

	var out []Hostel
	for rows.Next() {
		h, err := scanHostel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hostel: %w", err)
		}
		out = append(out, h.Hostel)
	}
	return out, rows.Err()
}

// SearchHostels narrows by text and university in SQL, then applies the
// room-level criteria (price, type, amenity) in Go. Prices live in a TEXT
// column on SQLite, so comparing them in SQL would be lexical.
func (s *Store) SearchHostels(ctx context.Context, f HostelFilter) ([]HostelListing, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	query := `SELECT ` + hostelColumns + ` FROM hostels WHERE 1=1`
	var args []any
	if f.OnlyVerified {
		query += ` AND verified=1`
	}
	if u := strings.TrimSpace(f.University); u != "" {
		query += ` AND LOWER(university)=LOWER(?)`
		args = append(args, u)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, like, like, like)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("search hostels: %w", err)
	}
	var candidates []hostelRow
	for rows.Next() {
		h, err := scanHostel(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan hostel: %w", err)
		}
		if !hasAmenity(h.amenitiesDoc, f.Amenity) {
			continue
		}
		candidates = append(candidates, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]HostelListing, 0, len(candidates))
	for _, h := range candidates {
		rooms, err := s.ListRoomsByHostel(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		l, ok := buildListing(h.Hostel, rooms, f)
		if !ok {
			continue
		}
		out = append(out, l)
	}

	if offset >= len(out) {
		return []HostelListing{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func buildListing(h Hostel, rooms []Room, f HostelFilter) (HostelListing, bool) {
	roomFiltered := f.RoomType != "" || !f.MinPrice.IsZero() || !f.MaxPrice.IsZero()
	l := HostelListing{Hostel: h}
	for _, r := range rooms {
		if f.RoomType != "" && r.Type != f.RoomType {
			continue
		}
		if !f.MinPrice.IsZero() && r.Price.LessThan(f.MinPrice) {
			continue
		}
		if !f.MaxPrice.IsZero() && r.Price.GreaterThan(f.MaxPrice) {
			continue
		}
		price := r.Price
		if l.MinPrice == nil || price.LessThan(*l.MinPrice) {
			l.MinPrice = &price
		}
		if l.MaxPrice == nil || price.GreaterThan(*l.MaxPrice) {
			p := price
			l.MaxPrice = &p
		}
		l.AvailableSlots += r.Available
		l.Rooms = append(l.Rooms, r)
	}
	if roomFiltered && len(l.Rooms) == 0 {
		return HostelListing{}, false
	}
	return l, true
}

func (s *Store) CountHostels(ctx context.Context) (total int64, unverified int64, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(CASE WHEN verified=0 THEN 1 ELSE 0 END), 0) FROM hostels`).Scan(&total, &unverified)
	if err != nil {
		return 0, 0, fmt.Errorf("count hostels: %w", err)
	}
	return total, unverified, nil
}
