package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"hallynk/internal/auth"
	"hallynk/internal/booking"
	"hallynk/internal/store"
)

func TestBookings_CreateAssignsReferenceAndPrice(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)

	b, err := st.CreateBooking(ctx, f.studentID, f.room.ID, " first semester ")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if !strings.HasPrefix(b.Reference, "HLK-") {
		t.Fatalf("reference = %q", b.Reference)
	}
	if b.Status != booking.StatusPending || b.HostelID != f.hostel.ID || b.Note != "first semester" {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if store.FormatGHS(b.Amount) != "1200.00" {
		t.Fatalf("amount = %s", b.Amount)
	}

	byRef, err := st.GetBookingByReference(ctx, strings.ToLower(b.Reference))
	if err != nil {
		t.Fatalf("GetBookingByReference: %v", err)
	}
	if byRef.ID != b.ID {
		t.Fatalf("reference lookup returned %d, want %d", byRef.ID, b.ID)
	}

	if _, err := st.CreateBooking(ctx, f.studentID, f.room.ID, ""); err != store.ErrDuplicateBooking {
		t.Fatalf("expected ErrDuplicateBooking, got %v", err)
	}
}

func TestBookings_UnverifiedHostelNotBookable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)
	if err := st.SetHostelVerified(ctx, f.hostel.ID, false); err != nil {
		t.Fatalf("SetHostelVerified: %v", err)
	}
	if _, err := st.CreateBooking(ctx, f.studentID, f.room.ID, ""); err != store.ErrHostelNotBookable {
		t.Fatalf("expected ErrHostelNotBookable, got %v", err)
	}
	if _, err := st.CreateBooking(ctx, f.studentID, f.room.ID+42, ""); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing room, got %v", err)
	}
}

func TestBookings_SlotAccounting(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)

	students := []int64{
		f.studentID,
		mustUser(t, st, "esi@example.com", auth.RoleStudent),
		mustUser(t, st, "kwame@example.com", auth.RoleStudent),
	}
	var ids []int64
	for _, sid := range students {
		b, err := st.CreateBooking(ctx, sid, f.room.ID, "")
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		ids = append(ids, b.ID)
	}

	for _, id := range ids[:2] {
		if _, err := st.TransitionBooking(ctx, id, booking.StatusConfirmed); err != nil {
			t.Fatalf("confirm %d: %v", id, err)
		}
	}
	assertAvailable(t, st, f.room.ID, 0)

	if _, err := st.TransitionBooking(ctx, ids[2], booking.StatusConfirmed); err != store.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if _, err := st.CreateBooking(ctx, mustUser(t, st, "late@example.com", auth.RoleStudent), f.room.ID, ""); err != store.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull on create, got %v", err)
	}

	if _, err := st.TransitionBooking(ctx, ids[0], booking.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	assertAvailable(t, st, f.room.ID, 1)

	if _, err := st.TransitionBooking(ctx, ids[2], booking.StatusConfirmed); err != nil {
		t.Fatalf("confirm after release: %v", err)
	}
	if _, err := st.TransitionBooking(ctx, ids[1], booking.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertAvailable(t, st, f.room.ID, 1)
}

func TestBookings_InvalidTransitions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)

	b, err := st.CreateBooking(ctx, f.studentID, f.room.ID, "")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := st.TransitionBooking(ctx, b.ID, booking.StatusCompleted); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("PENDING->COMPLETED: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := st.TransitionBooking(ctx, b.ID, booking.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := st.TransitionBooking(ctx, b.ID, booking.StatusConfirmed); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("CANCELLED->CONFIRMED: expected ErrInvalidTransition, got %v", err)
	}
	assertAvailable(t, st, f.room.ID, 2)
}

func TestBookings_ScopedListing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)
	other := mustUser(t, st, "other-owner@example.com", auth.RoleOwner)

	if _, err := st.CreateBooking(ctx, f.studentID, f.room.ID, ""); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	for _, tc := range []struct {
		name  string
		scope store.BookingScope
		want  int
	}{
		{"student", store.BookingScope{StudentID: f.studentID}, 1},
		{"owner", store.BookingScope{OwnerID: f.ownerID}, 1},
		{"other owner", store.BookingScope{OwnerID: other}, 0},
		{"status", store.BookingScope{Status: booking.StatusConfirmed}, 0},
		{"all", store.BookingScope{}, 1},
	} {
		got, err := st.ListBookings(ctx, tc.scope, 0, 0)
		if err != nil {
			t.Fatalf("%s: ListBookings: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: got %d bookings, want %d", tc.name, len(got), tc.want)
		}
	}
}

func TestPayments_SuccessConfirmsAndRefundCancels(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)

	b, err := st.CreateBooking(ctx, f.studentID, f.room.ID, "")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	_, err = st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: decimal.RequireFromString("1000"), Method: booking.MethodMoMo})
	if err != store.ErrAmountMismatch {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	p, err := st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: decimal.RequireFromString("1200.00"), Method: booking.MethodMoMo})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if p.Status != booking.PaymentPending || p.ProviderRef != nil || p.PaidAt != nil || !strings.HasPrefix(p.Reference, "PAY-") {
		t.Fatalf("unexpected payment: %+v", p)
	}

	p, err = st.TransitionPayment(ctx, p.ID, booking.PaymentSuccess, "MTN-778812")
	if err != nil {
		t.Fatalf("TransitionPayment(SUCCESS): %v", err)
	}
	if p.PaidAt == nil || p.ProviderRef == nil || *p.ProviderRef != "MTN-778812" {
		t.Fatalf("unexpected settled payment: %+v", p)
	}
	got, _ := st.GetBookingByID(ctx, b.ID)
	if got.Status != booking.StatusConfirmed {
		t.Fatalf("booking status = %s, want CONFIRMED", got.Status)
	}
	assertAvailable(t, st, f.room.ID, 1)

	if _, err := st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: decimal.RequireFromString("1200"), Method: booking.MethodCash}); err != store.ErrAlreadyPaid {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	if _, err := st.TransitionPayment(ctx, p.ID, booking.PaymentRefunded, ""); err != nil {
		t.Fatalf("TransitionPayment(REFUNDED): %v", err)
	}
	got, _ = st.GetBookingByID(ctx, b.ID)
	if got.Status != booking.StatusCancelled {
		t.Fatalf("booking status = %s, want CANCELLED", got.Status)
	}
	assertAvailable(t, st, f.room.ID, 2)

	if _, err := st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: decimal.RequireFromString("1200"), Method: booking.MethodCard}); err != store.ErrBookingNotPayable {
		t.Fatalf("expected ErrBookingNotPayable, got %v", err)
	}
	list, err := st.ListPaymentsByBooking(ctx, b.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPaymentsByBooking = %d, %v", len(list), err)
	}
}

func TestPayments_FailedIsTerminal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)

	b, _ := st.CreateBooking(ctx, f.studentID, f.room.ID, "")
	p, err := st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: b.Amount, Method: booking.MethodBank})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, err := st.TransitionPayment(ctx, p.ID, booking.PaymentFailed, ""); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := st.TransitionPayment(ctx, p.ID, booking.PaymentSuccess, ""); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := st.GetBookingByID(ctx, b.ID)
	if got.Status != booking.StatusPending {
		t.Fatalf("booking status = %s, want PENDING", got.Status)
	}
	if _, err := st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: b.Amount, Method: "PAYPAL"}); err == nil {
		t.Fatalf("expected invalid method error")
	}
}

func TestDashboards(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, st)
	mustUser(t, st, "admin@example.com", auth.RoleAdmin)

	b, _ := st.CreateBooking(ctx, f.studentID, f.room.ID, "")
	p, _ := st.CreatePayment(ctx, b.ID, store.PaymentInput{Amount: b.Amount, Method: booking.MethodMoMo})
	if _, err := st.TransitionPayment(ctx, p.ID, booking.PaymentSuccess, ""); err != nil {
		t.Fatalf("TransitionPayment: %v", err)
	}
	if _, err := st.CreateHostel(ctx, f.ownerID, store.HostelInput{Name: "Pending", University: "UCC"}); err != nil {
		t.Fatalf("CreateHostel: %v", err)
	}

	sd, err := st.StudentDashboard(ctx, f.studentID)
	if err != nil {
		t.Fatalf("StudentDashboard: %v", err)
	}
	if sd.Bookings[booking.StatusConfirmed] != 1 || len(sd.Recent) != 1 {
		t.Fatalf("unexpected student dashboard: %+v", sd)
	}

	od, err := st.OwnerDashboard(ctx, f.ownerID)
	if err != nil {
		t.Fatalf("OwnerDashboard: %v", err)
	}
	if od.Hostels != 2 || od.Rooms != 1 || od.AvailableSlots != 1 {
		t.Fatalf("unexpected owner inventory: %+v", od)
	}
	if store.FormatGHS(od.Revenue) != "1200.00" {
		t.Fatalf("owner revenue = %s", od.Revenue)
	}

	ad, err := st.AdminDashboard(ctx)
	if err != nil {
		t.Fatalf("AdminDashboard: %v", err)
	}
	if ad.Hostels != 2 || ad.PendingVerification != 1 {
		t.Fatalf("unexpected hostel counts: %+v", ad)
	}
	if ad.Users[auth.RoleStudent] != 1 || ad.Users[auth.RoleOwner] != 1 || ad.Users[auth.RoleAdmin] != 1 {
		t.Fatalf("unexpected user counts: %v", ad.Users)
	}
	if store.FormatGHS(ad.Revenue) != "1200.00" {
		t.Fatalf("admin revenue = %s", ad.Revenue)
	}
}

func assertAvailable(t *testing.T, st *store.Store, roomID int64, want int) {
	t.Helper()
	r, err := st.GetRoomByID(context.Background(), roomID)
	if err != nil {
		t.Fatalf("GetRoomByID: %v", err)
	}
	if r.Available != want {
		t.Fatalf("available = %d, want %d", r.Available, want)
	}
}
