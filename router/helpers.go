package router

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hallynk/internal/middleware"
	"hallynk/internal/store"
)

func wrapHTTP(h http.Handler) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) {
			c.Status(http.StatusNotFound)
		}
	}
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func wrapHTTPFunc(f http.HandlerFunc) gin.HandlerFunc {
	if f == nil {
		return wrapHTTP(nil)
	}
	return wrapHTTP(f)
}

// fromHTTP runs a net/http middleware inside a gin chain. Middlewares that
// do not call next abort the chain; request rewrites (context, body) are
// carried into gin.
func fromHTTP(mw middleware.Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "", "data": data})
}

func respondFail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil {
		respondFail(c, "invalid request body")
		return false
	}
	return true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		respondFail(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return n
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

var clientErrors = []error{
	store.ErrEmailTaken,
	store.ErrRegistrationClosed,
	store.ErrRoomFull,
	store.ErrDuplicateBooking,
	store.ErrHasActiveBookings,
	store.ErrAmountMismatch,
	store.ErrBookingNotPayable,
	store.ErrAlreadyPaid,
	store.ErrInvalidTransition,
	store.ErrHostelNotBookable,
	store.ErrCapacityBelowActive,
	store.ErrForbidden,
}

// recordAudit never fails the request; a lost audit row is only logged.
func recordAudit(c *gin.Context, opts Options, action, targetType string, targetID int64, detail string) {
	id, _ := currentIdentity(c)
	ctx := c.Request.Context()
	err := opts.Store.InsertAuditEvent(ctx, store.AuditEventInput{
		RequestID:  middleware.GetRequestID(ctx),
		ActorID:    id.ID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	})
	if err != nil {
		opts.logger().Warn("audit write failed", "action", action, "target_id", targetID, "err", err)
	}
}

// respondStoreError reports domain errors verbatim and hides everything else.
func respondStoreError(c *gin.Context, opts Options, what string, err error) {
	if isNotFound(err) {
		respondFail(c, what+" not found")
		return
	}
	var inputErr *store.InputError
	if errors.As(err, &inputErr) {
		respondFail(c, inputErr.Msg)
		return
	}
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			respondFail(c, err.Error())
			return
		}
	}
	opts.logger().Error("api store error", "path", c.Request.URL.Path, "what", what, "err", err)
	respondFail(c, "internal error")
}
