package store

import (
	"time"

	"github.com/shopspring/decimal"

	"hallynk/internal/booking"
)

const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// User.Role is stored verbatim; callers normalize it through auth.NormalizeRole.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash []byte
	Role         string
	Status       int
	// SessionVersion grows on every role, status or password change.
	SessionVersion int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Hostel struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	University  string
	Location    string
	Amenities   []string
	Verified    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RoomType string

const (
	RoomSingle RoomType = "SINGLE"
	RoomDouble RoomType = "DOUBLE"
	RoomTriple RoomType = "TRIPLE"
	RoomQuad   RoomType = "QUAD"
)

type Room struct {
	ID        int64
	HostelID  int64
	Type      RoomType
	Price     decimal.Decimal
	Capacity  int
	Available int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Booking struct {
	ID        int64
	Reference string
	StudentID int64
	HostelID  int64
	RoomID    int64
	Status    booking.Status
	Amount    decimal.Decimal
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Payment struct {
	ID          int64
	Reference   string
	BookingID   int64
	Amount      decimal.Decimal
	Method      booking.PaymentMethod
	ProviderRef *string
	Status      booking.PaymentStatus
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
