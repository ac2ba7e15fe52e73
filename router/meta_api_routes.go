package router

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hallynk/internal/booking"
	"hallynk/internal/store"
)

func setMetaAPIRoutes(r gin.IRoutes, opts Options) {
	r.GET("/meta", metaHandler(opts))
}

func metaHandler(opts Options) gin.HandlerFunc {
	m := opts.Marketplace
	universities := m.Universities
	if universities == nil {
		universities = []string{}
	}
	payload := gin.H{
		"currency":         m.Currency,
		"min_room_price":   store.FormatGHS(m.MinRoomPrice),
		"max_room_price":   store.FormatGHS(m.MaxRoomPrice),
		"universities":     universities,
		"room_types":       []store.RoomType{store.RoomSingle, store.RoomDouble, store.RoomTriple, store.RoomQuad},
		"payment_methods":  []booking.PaymentMethod{booking.MethodMoMo, booking.MethodCard, booking.MethodBank, booking.MethodCash},
		"booking_statuses": booking.AllStatuses,
	}
	return func(c *gin.Context) {
		respondOK(c, payload)
	}
}

// knownUniversity accepts anything when no list is configured.
func knownUniversity(m Options, name string) bool {
	list := m.Marketplace.Universities
	if len(list) == 0 {
		return true
	}
	for _, u := range list {
		if strings.EqualFold(strings.TrimSpace(u), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
