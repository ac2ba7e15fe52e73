package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"hallynk/internal/auth"
	"hallynk/internal/store"
)

type hostelRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	University  string   `json:"university"`
	Location    string   `json:"location"`
	Amenities   []string `json:"amenities"`
}

type roomRequest struct {
	Type     string `json:"type"`
	Price    string `json:"price"`
	Capacity int    `json:"capacity"`
}

func setOwnerAPIRoutes(r *gin.RouterGroup, opts Options) {
	g := r.Group("/owner", requireIdentity(opts), requireRoles(auth.RoleOwner, auth.RoleAdmin))

	g.GET("/hostels", ownerHostelListHandler(opts))
	g.POST("/hostels", ownerHostelCreateHandler(opts))
	g.PUT("/hostels/:id", ownerHostelUpdateHandler(opts))
	g.DELETE("/hostels/:id", ownerHostelDeleteHandler(opts))

	g.GET("/hostels/:id/rooms", ownerRoomListHandler(opts))
	g.POST("/hostels/:id/rooms", ownerRoomCreateHandler(opts))
	g.PUT("/hostels/:id/rooms/:room_id", ownerRoomUpdateHandler(opts))
	g.DELETE("/hostels/:id/rooms/:room_id", ownerRoomDeleteHandler(opts))

	g.GET("/bookings", ownerBookingListHandler(opts))
	g.GET("/dashboard", ownerDashboardHandler(opts))
}

func (req hostelRequest) input() store.HostelInput {
	return store.HostelInput{
		Name:        req.Name,
		Description: req.Description,
		University:  req.University,
		Location:    req.Location,
		Amenities:   req.Amenities,
	}
}

// roomInput applies the marketplace price bounds on top of store validation.
func (req roomRequest) input(opts Options) (store.RoomInput, string) {
	rt, ok := store.ParseRoomType(req.Type)
	if !ok {
		return store.RoomInput{}, "type must be one of SINGLE, DOUBLE, TRIPLE, QUAD"
	}
	price, err := store.ParseGHS(req.Price)
	if err != nil {
		return store.RoomInput{}, "price: " + err.Error()
	}
	m := opts.Marketplace
	if outsideBounds(price, m.MinRoomPrice, m.MaxRoomPrice) {
		return store.RoomInput{}, "price must be between " + store.FormatGHS(m.MinRoomPrice) + " and " + store.FormatGHS(m.MaxRoomPrice) + " " + m.Currency
	}
	return store.RoomInput{Type: rt, Price: price, Capacity: req.Capacity}, ""
}

func outsideBounds(v, lo, hi decimal.Decimal) bool {
	if lo.IsPositive() && v.LessThan(lo) {
		return true
	}
	return hi.IsPositive() && v.GreaterThan(hi)
}

// ownedHostel loads the :id hostel and checks the caller may manage it.
func ownedHostel(c *gin.Context, opts Options) (store.Hostel, bool) {
	hostelID, ok := int64Param(c, "id")
	if !ok {
		return store.Hostel{}, false
	}
	h, err := opts.Store.GetHostelByID(c.Request.Context(), hostelID)
	if err != nil {
		respondStoreError(c, opts, "hostel", err)
		return store.Hostel{}, false
	}
	id, _ := currentIdentity(c)
	if id.Role != auth.RoleAdmin && h.OwnerID != id.ID {
		respondStoreError(c, opts, "hostel", store.ErrForbidden)
		return store.Hostel{}, false
	}
	return h, true
}

// ownedRoom additionally checks :room_id belongs to the :id hostel.
func ownedRoom(c *gin.Context, opts Options) (store.Room, bool) {
	h, ok := ownedHostel(c, opts)
	if !ok {
		return store.Room{}, false
	}
	roomID, ok := int64Param(c, "room_id")
	if !ok {
		return store.Room{}, false
	}
	room, err := opts.Store.GetRoomByID(c.Request.Context(), roomID)
	if err == nil && room.HostelID != h.ID {
		err = store.ErrNotFound
	}
	if err != nil {
		respondStoreError(c, opts, "room", err)
		return store.Room{}, false
	}
	return room, true
}

func ownerHostelListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		hs, err := opts.Store.ListHostelsByOwner(c.Request.Context(), id.ID)
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		respondOK(c, toHostelViews(hs))
	}
}

func ownerHostelCreateHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req hostelRequest
		if !bindJSON(c, &req) {
			return
		}
		if !knownUniversity(opts, req.University) {
			respondFail(c, "unknown university")
			return
		}
		id, _ := currentIdentity(c)
		h, err := opts.Store.CreateHostel(c.Request.Context(), id.ID, req.input())
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		opts.logger().Info("hostel created", "hostel_id", h.ID, "owner_id", id.ID)
		respondOK(c, toHostelView(h))
	}
}

func ownerHostelUpdateHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := ownedHostel(c, opts)
		if !ok {
			return
		}
		var req hostelRequest
		if !bindJSON(c, &req) {
			return
		}
		if !strings.EqualFold(strings.TrimSpace(req.University), h.University) && !knownUniversity(opts, req.University) {
			respondFail(c, "unknown university")
			return
		}
		updated, err := opts.Store.UpdateHostel(c.Request.Context(), h.ID, req.input())
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		respondOK(c, toHostelView(updated))
	}
}

func ownerHostelDeleteHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := ownedHostel(c, opts)
		if !ok {
			return
		}
		if err := opts.Store.DeleteHostel(c.Request.Context(), h.ID); err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		recordAudit(c, opts, "hostel.delete", store.AuditTargetHostel, h.ID, h.Name)
		opts.logger().Info("hostel deleted", "hostel_id", h.ID)
		respondOK(c, nil)
	}
}

func ownerRoomListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := ownedHostel(c, opts)
		if !ok {
			return
		}
		rooms, err := opts.Store.ListRoomsByHostel(c.Request.Context(), h.ID)
		if err != nil {
			respondStoreError(c, opts, "room", err)
			return
		}
		respondOK(c, toRoomViews(rooms))
	}
}

func ownerRoomCreateHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := ownedHostel(c, opts)
		if !ok {
			return
		}
		var req roomRequest
		if !bindJSON(c, &req) {
			return
		}
		in, msg := req.input(opts)
		if msg != "" {
			respondFail(c, msg)
			return
		}
		room, err := opts.Store.CreateRoom(c.Request.Context(), h.ID, in)
		if err != nil {
			respondStoreError(c, opts, "room", err)
			return
		}
		respondOK(c, toRoomView(room))
	}
}

func ownerRoomUpdateHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := ownedRoom(c, opts)
		if !ok {
			return
		}
		var req roomRequest
		if !bindJSON(c, &req) {
			return
		}
		in, msg := req.input(opts)
		if msg != "" {
			respondFail(c, msg)
			return
		}
		updated, err := opts.Store.UpdateRoom(c.Request.Context(), room.ID, in)
		if err != nil {
			respondStoreError(c, opts, "room", err)
			return
		}
		respondOK(c, toRoomView(updated))
	}
}

func ownerRoomDeleteHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := ownedRoom(c, opts)
		if !ok {
			return
		}
		if err := opts.Store.DeleteRoom(c.Request.Context(), room.ID); err != nil {
			respondStoreError(c, opts, "room", err)
			return
		}
		respondOK(c, nil)
	}
}

func ownerBookingListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		scope, ok := bookingScopeFromQuery(c)
		if !ok {
			return
		}
		if id.Role != auth.RoleAdmin {
			scope.OwnerID = id.ID
		}
		bs, err := opts.Store.ListBookings(c.Request.Context(), scope, intQuery(c, "limit"), intQuery(c, "offset"))
		if err != nil {
			respondStoreError(c, opts, "booking", err)
			return
		}
		respondOK(c, toBookingViews(bs))
	}
}
