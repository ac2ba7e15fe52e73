package router

import (
	"github.com/gin-gonic/gin"

	"hallynk/internal/auth"
	"hallynk/internal/booking"
	"hallynk/internal/store"
)

func setDashboardAPIRoutes(r gin.IRoutes, opts Options) {
	r.GET("/dashboard", requireIdentity(opts), studentDashboardHandler(opts))
}

type studentDashboardView struct {
	Bookings map[booking.Status]int64 `json:"bookings"`
	Recent   []bookingView            `json:"recent"`
}

type ownerDashboardView struct {
	Hostels        int64                    `json:"hostels"`
	Rooms          int64                    `json:"rooms"`
	AvailableSlots int64                    `json:"available_slots"`
	Bookings       map[booking.Status]int64 `json:"bookings"`
	Revenue        string                   `json:"revenue"`
	Currency       string                   `json:"currency"`
	Recent         []bookingView            `json:"recent"`
}

type adminDashboardView struct {
	Users               map[auth.Role]int64      `json:"users"`
	Hostels             int64                    `json:"hostels"`
	PendingVerification int64                    `json:"pending_verification"`
	Bookings            map[booking.Status]int64 `json:"bookings"`
	Revenue             string                   `json:"revenue"`
	Currency            string                   `json:"currency"`
}

func studentDashboardHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		d, err := opts.Store.StudentDashboard(c.Request.Context(), id.ID)
		if err != nil {
			respondStoreError(c, opts, "dashboard", err)
			return
		}
		respondOK(c, studentDashboardView{Bookings: d.Bookings, Recent: toBookingViews(d.Recent)})
	}
}

func ownerDashboardHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		d, err := opts.Store.OwnerDashboard(c.Request.Context(), id.ID)
		if err != nil {
			respondStoreError(c, opts, "dashboard", err)
			return
		}
		respondOK(c, ownerDashboardView{
			Hostels:        d.Hostels,
			Rooms:          d.Rooms,
			AvailableSlots: d.AvailableSlots,
			Bookings:       d.Bookings,
			Revenue:        store.FormatGHS(d.Revenue),
			Currency:       opts.Marketplace.Currency,
			Recent:         toBookingViews(d.Recent),
		})
	}
}

func adminDashboardHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := opts.Store.AdminDashboard(c.Request.Context())
		if err != nil {
			respondStoreError(c, opts, "dashboard", err)
			return
		}
		respondOK(c, adminDashboardView{
			Users:               d.Users,
			Hostels:             d.Hostels,
			PendingVerification: d.PendingVerification,
			Bookings:            d.Bookings,
			Revenue:             store.FormatGHS(d.Revenue),
			Currency:            opts.Marketplace.Currency,
		})
	}
}
