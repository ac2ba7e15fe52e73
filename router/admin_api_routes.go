package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hallynk/internal/auth"
	"hallynk/internal/store"
)

type adminRoleRequest struct {
	Role string `json:"role"`
}

type adminStatusRequest struct {
	Status int `json:"status"`
}

type adminVerifyRequest struct {
	Verified bool `json:"verified"`
}

func setAdminAPIRoutes(r *gin.RouterGroup, opts Options) {
	g := r.Group("/admin", requireIdentity(opts), requireRoles(auth.RoleAdmin))

	g.GET("/dashboard", adminDashboardHandler(opts))

	g.GET("/users", adminUserListHandler(opts))
	g.POST("/users/:id/role", adminUserRoleHandler(opts))
	g.POST("/users/:id/status", adminUserStatusHandler(opts))

	g.GET("/hostels/pending", adminPendingHostelsHandler(opts))
	g.POST("/hostels/:id/verify", adminHostelVerifyHandler(opts))

	g.GET("/bookings", adminBookingListHandler(opts))
	g.GET("/audit", adminAuditListHandler(opts))
}

type auditEventView struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

func adminAuditListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := opts.Store.ListAuditEvents(c.Request.Context(), c.Query("target_type"), intQuery(c, "limit"), intQuery(c, "offset"))
		if err != nil {
			respondStoreError(c, opts, "audit event", err)
			return
		}
		out := make([]auditEventView, 0, len(events))
		for _, e := range events {
			out = append(out, auditEventView(e))
		}
		respondOK(c, out)
	}
}

func adminUserListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var role auth.Role
		if raw := strings.TrimSpace(c.Query("role")); raw != "" {
			parsed, ok := auth.ParseRole(raw)
			if !ok {
				respondFail(c, "invalid role")
				return
			}
			role = parsed
		}
		users, err := opts.Store.ListUsers(c.Request.Context(), role, intQuery(c, "limit"), intQuery(c, "offset"))
		if err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		out := make([]userView, 0, len(users))
		for _, u := range users {
			out = append(out, toUserView(u))
		}
		respondOK(c, out)
	}
}

// adminTargetUser refuses self-demotion and self-disable, which could
// leave the marketplace without an admin.
func adminTargetUser(c *gin.Context) (int64, bool) {
	userID, ok := int64Param(c, "id")
	if !ok {
		return 0, false
	}
	if id, _ := currentIdentity(c); id.ID == userID {
		respondFail(c, "admins cannot change their own role or status")
		return 0, false
	}
	return userID, true
}

func adminUserRoleHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := adminTargetUser(c)
		if !ok {
			return
		}
		var req adminRoleRequest
		if !bindJSON(c, &req) {
			return
		}
		role, ok := auth.ParseRole(req.Role)
		if !ok {
			respondFail(c, "role must be STUDENT, OWNER or ADMIN")
			return
		}
		if err := opts.Store.UpdateUserRole(c.Request.Context(), userID, role); err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		invalidateIdentity(c, opts, userID)
		recordAudit(c, opts, "user.role", store.AuditTargetUser, userID, "role="+string(role))
		opts.logger().Info("user role changed", "user_id", userID, "role", role)
		respondOK(c, nil)
	}
}

func adminUserStatusHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := adminTargetUser(c)
		if !ok {
			return
		}
		var req adminStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := opts.Store.UpdateUserStatus(c.Request.Context(), userID, req.Status); err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		invalidateIdentity(c, opts, userID)
		recordAudit(c, opts, "user.status", store.AuditTargetUser, userID, "status="+strconv.Itoa(req.Status))
		opts.logger().Info("user status changed", "user_id", userID, "status", req.Status)
		respondOK(c, nil)
	}
}

func adminPendingHostelsHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		hs, err := opts.Store.ListUnverifiedHostels(c.Request.Context(), intQuery(c, "limit"))
		if err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		respondOK(c, toHostelViews(hs))
	}
}

func adminHostelVerifyHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		hostelID, ok := int64Param(c, "id")
		if !ok {
			return
		}
		var req adminVerifyRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := opts.Store.SetHostelVerified(c.Request.Context(), hostelID, req.Verified); err != nil {
			respondStoreError(c, opts, "hostel", err)
			return
		}
		recordAudit(c, opts, "hostel.verify", store.AuditTargetHostel, hostelID, "verified="+strconv.FormatBool(req.Verified))
		opts.logger().Info("hostel verification changed", "hostel_id", hostelID, "verified", req.Verified)
		respondOK(c, nil)
	}
}

func adminBookingListHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := bookingScopeFromQuery(c)
		if !ok {
			return
		}
		bs, err := opts.Store.ListBookings(c.Request.Context(), scope, intQuery(c, "limit"), intQuery(c, "offset"))
		if err != nil {
			respondStoreError(c, opts, "booking", err)
			return
		}
		respondOK(c, toBookingViews(bs))
	}
}
