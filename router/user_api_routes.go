package router

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"hallynk/internal/access"
	"hallynk/internal/auth"
	"hallynk/internal/store"
)

type userRegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

type passwordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type sessionResponse struct {
	User     userView `json:"user"`
	Redirect string   `json:"redirect"`
}

func setUserAPIRoutes(r gin.IRoutes, opts Options) {
	r.POST("/auth/register", userRegisterHandler(opts))
	r.POST("/auth/login", userLoginHandler(opts))
	r.POST("/auth/logout", userLogoutHandler())
	r.GET("/user/self", requireIdentity(opts), userSelfHandler(opts))
	r.POST("/user/password", requireIdentity(opts), userPasswordHandler(opts))
}

func userRegisterHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req userRegisterRequest
		if !bindJSON(c, &req) {
			return
		}
		email := auth.NormalizeEmail(req.Email)
		if email == "" || !strings.Contains(email, "@") {
			respondFail(c, "a valid email is required")
			return
		}
		if strings.TrimSpace(req.FullName) == "" {
			respondFail(c, "full name is required")
			return
		}

		role := auth.RoleStudent
		if strings.TrimSpace(req.Role) != "" {
			parsed, ok := auth.ParseRole(req.Role)
			if !ok || parsed == auth.RoleAdmin {
				respondFail(c, "role must be STUDENT or OWNER")
				return
			}
			role = parsed
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
				respondFail(c, err.Error())
				return
			}
			respondStoreError(c, opts, "user", err)
			return
		}
		ctx := c.Request.Context()
		id, role, err := opts.Store.RegisterUser(ctx, email, req.FullName, hash, role, opts.AllowOpenRegistration)
		if err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		u, err := opts.Store.GetUserByID(ctx, id)
		if err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		if err := startSession(c, u); err != nil {
			respondFail(c, "could not save the session, please retry")
			return
		}
		opts.logger().Info("user registered", "user_id", u.ID, "role", role)
		respondOK(c, sessionResponse{User: toUserView(u), Redirect: role.Home()})
	}
}

func userLoginHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req userLoginRequest
		if !bindJSON(c, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			respondFail(c, "email and password are required")
			return
		}
		u, err := opts.Store.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil && !isNotFound(err) {
			respondStoreError(c, opts, "user", err)
			return
		}
		if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) || u.Status != store.UserStatusActive {
			respondFail(c, "invalid email or password")
			return
		}
		if err := startSession(c, u); err != nil {
			respondFail(c, "could not save the session, please retry")
			return
		}
		id := auth.Identity{ID: u.ID, Role: auth.NormalizeRole(u.Role), Email: u.Email, Source: auth.SourceSession}
		respondOK(c, sessionResponse{User: toUserView(u), Redirect: postLoginTarget(req.Redirect, id)})
	}
}

// postLoginTarget honours the requested return path only when the access
// policy would let this identity through; otherwise it is the role home.
func postLoginTarget(requested string, id auth.Identity) string {
	target := access.SafeRedirect(requested, id.Home())
	if d := access.Decide(target, &id); d.Action == access.Redirect {
		return d.Target
	}
	return target
}

func userLogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := clearSession(c); err != nil {
			respondFail(c, "could not clear the session")
			return
		}
		respondOK(c, gin.H{"redirect": access.LoginPath})
	}
}

func userSelfHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := currentIdentity(c)
		u, err := opts.Store.GetUserByID(c.Request.Context(), id.ID)
		if err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		respondOK(c, gin.H{
			"user":        toUserView(u),
			"home":        id.Home(),
			"auth_source": id.Source,
		})
	}
}

func userPasswordHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req passwordChangeRequest
		if !bindJSON(c, &req) {
			return
		}
		id, _ := currentIdentity(c)
		ctx := c.Request.Context()
		u, err := opts.Store.GetUserByID(ctx, id.ID)
		if err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		if !auth.CheckPassword(u.PasswordHash, req.OldPassword) {
			respondFail(c, "current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
				respondFail(c, err.Error())
				return
			}
			respondStoreError(c, opts, "user", err)
			return
		}
		if err := opts.Store.UpdateUserPasswordHash(ctx, u.ID, hash); err != nil {
			respondStoreError(c, opts, "user", err)
			return
		}
		invalidateIdentity(c, opts, u.ID)

		// The session_version bump retired every cookie, this one included.
		u, err = opts.Store.GetUserByID(ctx, u.ID)
		if err == nil && id.Source == auth.SourceSession {
			err = startSession(c, u)
		}
		if err != nil {
			respondFail(c, "password changed, please sign in again")
			return
		}
		respondOK(c, nil)
	}
}

func invalidateIdentity(c *gin.Context, opts Options, userID int64) {
	if opts.Identities == nil {
		return
	}
	if err := opts.Identities.Invalidate(c.Request.Context(), userID); err != nil {
		opts.logger().Warn("identity cache invalidation failed", "user_id", userID, "err", err)
	}
}
