package handler

import (
	"net/http"
	"strings"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/middleware"
	"facility-inspect/internal/model"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-gonic/gin"
)

// AdminHandler manages user accounts. Routes sit behind RequireAdmin.
type AdminHandler struct {
	users    *service.UserService
	sessions *session.Store
}

func NewAdminHandler(users *service.UserService, sessions *session.Store) *AdminHandler {
	return &AdminHandler{users: users, sessions: sessions}
}

// GET /api/admin/users
func (h *AdminHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	c.JSON(http.StatusOK, users)
}

// GET /api/admin/users/:email
func (h *AdminHandler) Get(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// POST /api/admin/users
func (h *AdminHandler) Create(c *gin.Context) {
	var in model.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	u, err := h.users.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("admin.user_created", "by", c.GetString(middleware.KeyEmail), "email", u.Email)
	c.JSON(http.StatusCreated, u)
}

// PUT /api/admin/users/:email
func (h *AdminHandler) Update(c *gin.Context) {
	var in model.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	email := c.Param("email")
	if sameEmail(email, c.GetString(middleware.KeyEmail)) && !in.IsAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove your own admin role"})
		return
	}
	u, err := h.users.Update(c.Request.Context(), email, in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sessions.SetAdmin(u.Email, u.IsAdmin)
	c.JSON(http.StatusOK, u)
}

// DELETE /api/admin/users/:email
func (h *AdminHandler) Delete(c *gin.Context) {
	email := c.Param("email")
	if sameEmail(email, c.GetString(middleware.KeyEmail)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}
	if err := h.users.Delete(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}
	ended := h.sessions.EndUser(email)
	logger.Info("admin.user_deleted", "by", c.GetString(middleware.KeyEmail), "email", email, "sessions_ended", ended)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
