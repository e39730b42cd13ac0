package handler

import (
	"net/http"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/middleware"
	"facility-inspect/internal/model"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	store   *session.Store
	ctl     *session.Controller
	records *service.RecordService
}

func NewSessionHandler(store *session.Store, ctl *session.Controller, records *service.RecordService) *SessionHandler {
	return &SessionHandler{store: store, ctl: ctl, records: records}
}

// current resolves the caller's session or writes a 401.
func (h *SessionHandler) current(c *gin.Context) (*session.Context, bool) {
	sess, ok := h.store.Get(c.GetString(middleware.KeySID))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, please log in again"})
		return nil, false
	}
	return sess, true
}

// GET /api/session
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// POST /api/session/transition  body: {"action":"select_type"}
func (h *SessionHandler) Transition(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sess, ok := h.current(c)
	if !ok {
		return
	}
	if err := h.ctl.Transition(sess, req.Action); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// POST /api/session/new  body: {"type":"Custodial"}
func (h *SessionHandler) New(c *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sess, ok := h.current(c)
	if !ok {
		return
	}
	if err := h.ctl.BeginNew(sess, req.Type); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// POST /api/session/edit/:id
func (h *SessionHandler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sess, ok := h.current(c)
	if !ok {
		return
	}
	if err := h.ctl.BeginEdit(c.Request.Context(), sess, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// POST /api/session/search  body: model.InspectionFilter
func (h *SessionHandler) Search(c *gin.Context) {
	var f model.InspectionFilter
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sess, ok := h.current(c)
	if !ok {
		return
	}
	results, err := h.ctl.Search(c.Request.Context(), sess, f)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []model.Inspection{}
	}
	c.JSON(http.StatusOK, results)
}

// PUT /api/session/form  body: session.FormPatch
func (h *SessionHandler) UpdateForm(c *gin.Context) {
	var patch session.FormPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sess, ok := h.current(c)
	if !ok {
		return
	}
	if err := h.ctl.UpdateForm(sess, patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// POST /api/session/submit
// Submits the open form, then clears it and returns to home.
func (h *SessionHandler) Submit(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		return
	}
	st := sess.Snapshot()
	if st.Screen != session.ScreenNewForm && st.Screen != session.ScreenEditForm {
		c.JSON(http.StatusConflict, gin.H{"error": "no form open"})
		return
	}

	res, err := h.records.Submit(c.Request.Context(), st.Form.Input(st.EditID, st.AIReport))
	if err != nil {
		respondError(c, err)
		return
	}
	h.ctl.ClearForm(sess)
	if err := h.ctl.Transition(sess, string(session.ScreenHome)); err != nil {
		logger.Warn("session.submit_transition", "sid", st.ID, "err", err)
	}
	c.JSON(http.StatusOK, res)
}
