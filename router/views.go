package router

import (
	"time"

	"github.com/shopspring/decimal"

	"hallynk/internal/auth"
	"hallynk/internal/booking"
	"hallynk/internal/store"
)

type userView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      auth.Role `json:"role"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u store.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      auth.NormalizeRole(u.Role),
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

type roomView struct {
	ID        int64          `json:"id"`
	HostelID  int64          `json:"hostel_id"`
	Type      store.RoomType `json:"type"`
	Price     string         `json:"price"`
	Capacity  int            `json:"capacity"`
	Available int            `json:"available"`
}

func toRoomView(r store.Room) roomView {
	return roomView{
		ID:        r.ID,
		HostelID:  r.HostelID,
		Type:      r.Type,
		Price:     store.FormatGHS(r.Price),
		Capacity:  r.Capacity,
		Available: r.Available,
	}
}

func toRoomViews(rs []store.Room) []roomView {
	out := make([]roomView, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRoomView(r))
	}
	return out
}

type hostelView struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	University  string    `json:"university"`
	Location    string    `json:"location"`
	Amenities   []string  `json:"amenities"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`

	MinPrice       *string    `json:"min_price,omitempty"`
	MaxPrice       *string    `json:"max_price,omitempty"`
	AvailableSlots *int       `json:"available_slots,omitempty"`
	Rooms          []roomView `json:"rooms,omitempty"`
}

func toHostelView(h store.Hostel) hostelView {
	amenities := h.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return hostelView{
		ID:          h.ID,
		OwnerID:     h.OwnerID,
		Name:        h.Name,
		Description: h.Description,
		University:  h.University,
		Location:    h.Location,
		Amenities:   amenities,
		Verified:    h.Verified,
		CreatedAt:   h.CreatedAt,
	}
}

func toHostelViews(hs []store.Hostel) []hostelView {
	out := make([]hostelView, 0, len(hs))
	for _, h := range hs {
		out = append(out, toHostelView(h))
	}
	return out
}

func toListingView(l store.HostelListing) hostelView {
	v := toHostelView(l.Hostel)
	v.MinPrice = ghsPtr(l.MinPrice)
	v.MaxPrice = ghsPtr(l.MaxPrice)
	slots := l.AvailableSlots
	v.AvailableSlots = &slots
	v.Rooms = toRoomViews(l.Rooms)
	return v
}

func ghsPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := store.FormatGHS(*d)
	return &s
}

type bookingView struct {
	ID        int64          `json:"id"`
	Reference string         `json:"reference"`
	StudentID int64          `json:"student_id"`
	HostelID  int64          `json:"hostel_id"`
	RoomID    int64          `json:"room_id"`
	Status    booking.Status `json:"status"`
	Amount    string         `json:"amount"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toBookingView(b store.Booking) bookingView {
	return bookingView{
		ID:        b.ID,
		Reference: b.Reference,
		StudentID: b.StudentID,
		HostelID:  b.HostelID,
		RoomID:    b.RoomID,
		Status:    b.Status,
		Amount:    store.FormatGHS(b.Amount),
		Note:      b.Note,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toBookingViews(bs []store.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingView(b))
	}
	return out
}

type paymentView struct {
	ID          int64                 `json:"id"`
	Reference   string                `json:"reference"`
	BookingID   int64                 `json:"booking_id"`
	Amount      string                `json:"amount"`
	Method      booking.PaymentMethod `json:"method"`
	ProviderRef *string               `json:"provider_ref,omitempty"`
	Status      booking.PaymentStatus `json:"status"`
	PaidAt      *time.Time            `json:"paid_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func toPaymentView(p store.Payment) paymentView {
	return paymentView{
		ID:          p.ID,
		Reference:   p.Reference,
		BookingID:   p.BookingID,
		Amount:      store.FormatGHS(p.Amount),
		Method:      p.Method,
		ProviderRef: p.ProviderRef,
		Status:      p.Status,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
	}
}
