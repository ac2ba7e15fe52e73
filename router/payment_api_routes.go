package router

import (
	"github.com/gin-gonic/gin"

	"hallynk/internal/auth"
	"hallynk/internal/booking"
	"hallynk/internal/store"
)

func setPaymentAPIRoutes(r *gin.RouterGroup, opts Options) {
	g := r.Group("/payments", requireIdentity(opts))
	g.GET("/:id", paymentDetailHandler(opts))
	g.POST("/:id/status", requireRoles(auth.RoleOwner, auth.RoleAdmin), limitWrites(opts), paymentStatusHandler(opts))
}

func paymentListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc, ok := bookingFromParam(c, opts)
		if !ok {
			return
		}
		ps, err := opts.Store.ListPaymentsByBooking(c.Request.Context(), acc.Booking.ID)
		if err != nil {
			respondStoreError(c, opts, "payment", err)
			return
		}
		out := make([]paymentView, 0, len(ps))
		for _, p := range ps {
			out = append(out, toPaymentView(p))
		}
		respondOK(c, out)
	}
}

// paymentCreateHandler records a payment made outside Hallynk against the
// caller's booking. Managers may record one on a student's behalf.
func paymentCreateHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentCreateRequest
		if !bindJSON(c, &req) {
			return
		}
		amount, err := store.ParseGHS(req.Amount)
		if err != nil {
			respondFail(c, "amount: "+err.Error())
			return
		}
		method, ok := booking.ParsePaymentMethod(req.Method)
		if !ok {
			respondFail(c, "method must be one of MOMO, CARD, BANK, CASH")
			return
		}
		acc, ok := bookingFromParam(c, opts)
		if !ok {
			return
		}
		p, err := opts.Store.CreatePayment(c.Request.Context(), acc.Booking.ID, store.PaymentInput{
			Amount:      amount,
			Method:      method,
			ProviderRef: req.ProviderRef,
		})
		if err != nil {
			respondStoreError(c, opts, "booking", err)
			return
		}
		opts.logger().Info("payment recorded", "payment_id", p.ID, "booking_id", acc.Booking.ID, "method", method)
		respondOK(c, toPaymentView(p))
	}
}

func paymentFromParam(c *gin.Context, opts Options) (store.Payment, bookingAccess, bool) {
	paymentID, ok := int64Param(c, "id")
	if !ok {
		return store.Payment{}, bookingAccess{}, false
	}
	ctx := c.Request.Context()
	p, err := opts.Store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		respondStoreError(c, opts, "payment", err)
		return store.Payment{}, bookingAccess{}, false
	}
	b, err := opts.Store.GetBookingByID(ctx, p.BookingID)
	if err != nil {
		respondStoreError(c, opts, "booking", err)
		return store.Payment{}, bookingAccess{}, false
	}
	acc, ok := loadBookingAccess(c, opts, b)
	return p, acc, ok
}

func paymentDetailHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _, ok := paymentFromParam(c, opts)
		if !ok {
			return
		}
		respondOK(c, toPaymentView(p))
	}
}

func paymentStatusHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}
		to, ok := booking.ParsePaymentStatus(req.Status)
		if !ok || to == booking.PaymentPending {
			respondFail(c, "status must be SUCCESS, FAILED or REFUNDED")
			return
		}
		p, acc, ok := paymentFromParam(c, opts)
		if !ok {
			return
		}
		if !acc.Manager {
			respondStoreError(c, opts, "payment", store.ErrForbidden)
			return
		}
		updated, err := opts.Store.TransitionPayment(c.Request.Context(), p.ID, to, req.ProviderRef)
		if err != nil {
			respondStoreError(c, opts, "payment", err)
			return
		}
		recordAudit(c, opts, "payment.status", store.AuditTargetPayment, p.ID, string(p.Status)+" -> "+string(to))
		opts.logger().Info("payment status changed", "payment_id", p.ID, "from", p.Status, "to", to)
		respondOK(c, toPaymentView(updated))
	}
}
