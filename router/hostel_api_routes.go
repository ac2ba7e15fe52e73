package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"hallynk/internal/auth"
	"hallynk/internal/store"
)

func setHostelAPIRoutes(r gin.IRoutes, opts Options) {
	r.GET("/hostels", hostelSearchHandler(opts))
	r.GET("/hostels/:id", hostelDetailHandler(opts))
}

func hostelSearchHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := store.HostelFilter{
			Query:        strings.TrimSpace(c.Query("q")),
			University:   strings.TrimSpace(c.Query("university")),
			Amenity:      strings.TrimSpace(c.Query("amenity")),
			OnlyVerified: true,
			Limit:        intQuery(c, "limit"),
			Offset:       intQuery(c, "offset"),
		}
		var ok bool
		if f.MinPrice, ok = priceQuery(c, "min_price"); !ok {
			return
		}
		if f.MaxPrice, ok = priceQuery(c, "max_price"); !ok {
			return
		}
		if raw := strings.TrimSpace(c.Query("room_type")); raw != "" {
			rt, ok := store.ParseRoomType(raw)
			if !ok {
				respondFail(c, "invalid room_type")
				return
			}
			f.RoomType = rt
		}

		listings, err := opts.Store.SearchHostels(c.Request.Context(), f)
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		out := make([]hostelView, 0, len(listings))
		for _, l := range listings {
			out = append(out, toListingView(l))
		}
		respondOK(c, out)
	}
}

// priceQuery reads an optional GHS amount; zero means unset.
func priceQuery(c *gin.Context, name string) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := store.ParseGHS(raw)
	if err != nil {
		respondFail(c, name+": "+err.Error())
		return decimal.Zero, false
	}
	return d, true
}

// hostelDetailHandler hides unverified hostels from everyone except their
// owner and admins.
func hostelDetailHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostelID, ok := int64Param(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		h, err := opts.Store.GetHostelByID(ctx, hostelID)
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		if !h.Verified {
			id, signedIn := resolveIdentity(c, opts)
			if !signedIn || (id.Role != auth.RoleAdmin && id.ID != h.OwnerID) {
				respondFail(c, "hostel not found")
				return
			}
		}
		rooms, err := opts.Store.ListRoomsByHostel(ctx, h.ID)
		if err != nil {
			respondStoreError(c, opts, "room", err)
			return
		}
		v := toHostelView(h)
		v.Rooms = toRoomViews(rooms)
		slots := 0
		for _, r := range rooms {
			slots += r.Available
		}
		v.AvailableSlots = &slots
		respondOK(c, v)
	}
}
