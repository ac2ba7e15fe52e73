package router

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hallynk/internal/auth"
	"hallynk/internal/booking"
	"hallynk/internal/store"
)

type bookingCreateRequest struct {
	RoomID int64  `json:"room_id"`
	Note   string `json:"note"`
}

type statusRequest struct {
	Status      string `json:"status"`
	ProviderRef string `json:"provider_ref"`
}

type paymentCreateRequest struct {
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	ProviderRef string `json:"provider_ref"`
}

func setBookingAPIRoutes(r *gin.RouterGroup, opts Options) {
	g := r.Group("/bookings", requireIdentity(opts))

	g.GET("", bookingListHandler(opts))
	g.POST("", requireRoles(auth.RoleStudent), limitWrites(opts), bookingCreateHandler(opts))
	g.GET("/lookup", bookingLookupHandler(opts))
	g.GET("/:id", bookingDetailHandler(opts))
	g.POST("/:id/cancel", limitWrites(opts), bookingCancelHandler(opts))
	g.POST("/:id/status", requireRoles(auth.RoleOwner, auth.RoleAdmin), limitWrites(opts), bookingStatusHandler(opts))
	g.GET("/:id/payments", paymentListHandler(opts))
	g.POST("/:id/payments", limitWrites(opts), paymentCreateHandler(opts))
}

// bookingAccess is what the caller may do with one booking.
type bookingAccess struct {
	Booking store.Booking
	Student bool // the caller made the booking
	Manager bool // the caller owns the hostel or is an admin
}

func loadBookingAccess(c *gin.Context, opts Options, b store.Booking) (bookingAccess, bool) {
	id, _ := currentIdentity(c)
	acc := bookingAccess{Booking: b, Student: b.StudentID == id.ID, Manager: id.Role == auth.RoleAdmin}
	if !acc.Manager && id.Role == auth.RoleOwner {
		h, err := opts.Store.GetHostelByID(c.Request.Context(), b.HostelID)
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return bookingAccess{}, false
		}
		acc.Manager = h.OwnerID == id.ID
	}
	if !acc.Student && !acc.Manager {
		// Someone else's booking looks the same as a missing one.
		respondFail(c, "booking not found")
		return bookingAccess{}, false
	}
	return acc, true
}

func bookingFromParam(c *gin.Context, opts Options) (bookingAccess, bool) {
	bookingID, ok := int64Param(c, "id")
	if !ok {
		return bookingAccess{}, false
	}
	b, err := opts.Store.GetBookingByID(c.Request.Context(), bookingID)
	if err != nil {
		respondStoreError(c, opts, "booking", err)
		return bookingAccess{}, false
	}
	return loadBookingAccess(c, opts, b)
}

func bookingScopeFromQuery(c *gin.Context) (store.BookingScope, bool) {
	var scope store.BookingScope
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st, ok := booking.ParseStatus(raw)
		if !ok {
			respondFail(c, "invalid status")
			return scope, false
		}
		scope.Status = st
	}
	if raw := strings.TrimSpace(c.Query("hostel_id")); raw != "" {
		n := intQuery(c, "hostel_id")
		if n <= 0 {
			respondFail(c, "invalid hostel_id")
			return scope, false
		}
		scope.HostelID = int64(n)
	}
	return scope, true
}

func bookingListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		scope, ok := bookingScopeFromQuery(c)
		if !ok {
			return
		}
		scope.StudentID = id.ID
		bs, err := opts.Store.ListBookings(c.Request.Context(), scope, intQuery(c, "limit"), intQuery(c, "offset"))
		if err != nil {
			respondStoreError(c, opts, "booking", err)
			return
		}
		respondOK(c, toBookingViews(bs))
	}
}

func bookingCreateHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bookingCreateRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.RoomID <= 0 {
			respondFail(c, "room_id is required")
			return
		}
		id, _ := currentIdentity(c)
		b, err := opts.Store.CreateBooking(c.Request.Context(), id.ID, req.RoomID, strings.TrimSpace(req.Note))
		if err != nil {
			respondStoreError(c, opts, "room", err)
			return
		}
		opts.logger().Info("booking created", "booking_id", b.ID, "reference", b.Reference, "student_id", id.ID)
		respondOK(c, toBookingView(b))
	}
}

func bookingLookupHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := strings.TrimSpace(c.Query("reference"))
		if ref == "" {
			respondFail(c, "reference is required")
			return
		}
		b, err := opts.Store.GetBookingByReference(c.Request.Context(), ref)
		if err != nil {
			respondStoreError(c, opts, "booking", err)
			return
		}
		acc, ok := loadBookingAccess(c, opts, b)
		if !ok {
			return
		}
		respondOK(c, toBookingView(acc.Booking))
	}
}

func bookingDetailHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc, ok := bookingFromParam(c, opts)
		if !ok {
			return
		}
		respondOK(c, toBookingView(acc.Booking))
	}
}

func bookingCancelHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc, ok := bookingFromParam(c, opts)
		if !ok {
			return
		}
		transitionBooking(c, opts, acc.Booking, booking.StatusCancelled)
	}
}

// bookingStatusHandler lets hostel managers confirm, cancel or complete.
func bookingStatusHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}
		to, ok := booking.ParseStatus(req.Status)
		if !ok || to == booking.StatusPending {
			respondFail(c, "status must be CONFIRMED, CANCELLED or COMPLETED")
			return
		}
		acc, ok := bookingFromParam(c, opts)
		if !ok {
			return
		}
		if !acc.Manager {
			respondStoreError(c, opts, "booking", store.ErrForbidden)
			return
		}
		transitionBooking(c, opts, acc.Booking, to)
	}
}

func transitionBooking(c *gin.Context, opts Options, b store.Booking, to booking.Status) {
	updated, err := opts.Store.TransitionBooking(c.Request.Context(), b.ID, to)
	if err != nil {
		respondStoreError(c, opts, "booking", err)
		return
	}
	id, _ := currentIdentity(c)
	recordAudit(c, opts, "booking.status", store.AuditTargetBooking, b.ID, string(b.Status)+" -> "+string(to))
	opts.logger().Info("booking status changed", "booking_id", b.ID, "from", b.Status, "to", to, "by", id.ID)
	respondOK(c, toBookingView(updated))
}
