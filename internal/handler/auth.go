package handler

import (
	"net/http"
	"time"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/middleware"
	"facility-inspect/internal/model"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users    *service.UserService
	sessions *session.Store
	secret   []byte
	ttl      time.Duration
}

func NewAuthHandler(users *service.UserService, sessions *session.Store, secret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, secret: secret, ttl: ttl}
}

// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Warn("login.failed", "email", req.Email, "err", err)
		respondError(c, err)
		return
	}

	info := u.Info()
	sess := h.sessions.Start(session.User{Email: info.Email, Name: info.Name, IsAdmin: info.IsAdmin})
	st := sess.Snapshot()
	token, err := middleware.IssueToken(h.secret, info.Email, info.Name, info.IsAdmin, st.ID, h.ttl)
	if err != nil {
		h.sessions.End(st.ID)
		respondError(c, err)
		return
	}
	logger.Info("login.ok", "email", info.Email, "admin", info.IsAdmin, "sid", st.ID)

	c.JSON(http.StatusOK, model.LoginResponse{
		Token:  token,
		SID:    st.ID,
		Screen: string(st.Screen),
		User:   info,
	})
}

// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.End(c.GetString(middleware.KeySID))
	logger.Info("logout", "email", c.GetString(middleware.KeyEmail))
	c.JSON(http.StatusOK, gin.H{"ok": true, "screen": session.ScreenLogin})
}
