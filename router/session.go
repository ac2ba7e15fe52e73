package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"hallynk/internal/session"
	"hallynk/internal/store"
)

// startSession writes the keys session.CookieResolver reads back.
func startSession(c *gin.Context, u store.User) error {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Set(session.UserIDKey, u.ID)
	sess.Set(session.UserSessionVersionKey, u.SessionVersion)
	return sess.Save()
}

func clearSession(c *gin.Context) error {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	return sess.Save()
}
