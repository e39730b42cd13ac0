package handler

import (
	"errors"
	"fmt"
	"net/http"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/middleware"
	"facility-inspect/internal/model"
	"facility-inspect/internal/report"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-gonic/gin"
)

type InspectionHandler struct {
	inspections *service.InspectionService
	records     *service.RecordService
	files       *service.FileStore
	sessions    *session.Store
	ctl         *session.Controller
}

func NewInspectionHandler(inspections *service.InspectionService, records *service.RecordService, files *service.FileStore,
	sessions *session.Store, ctl *session.Controller) *InspectionHandler {
	return &InspectionHandler{inspections: inspections, records: records, files: files, sessions: sessions, ctl: ctl}
}

// GET /api/inspections?building=&type=&inspector=&date=&date_from=&date_to=&with_photos=&limit=
func (h *InspectionHandler) List(c *gin.Context) {
	var f model.InspectionFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	out, err := h.inspections.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []model.Inspection{}
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/inspections
func (h *InspectionHandler) Create(c *gin.Context) {
	var in model.InspectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	in.ID = 0
	h.submit(c, in)
}

// PUT /api/inspections/:id
func (h *InspectionHandler) Replace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in model.InspectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	in.ID = id
	h.submit(c, in)
}

func (h *InspectionHandler) submit(c *gin.Context, in model.InspectionInput) {
	res, err := h.records.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("inspection.submitted", "by", c.GetString(middleware.KeyEmail), "storage", res.Storage, "id", res.ID)
	status := http.StatusOK
	if in.ID == 0 {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// GET /api/inspections/:id
func (h *InspectionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.inspections.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/inspections/:id/summary
// On an AI failure the user-facing text is returned with a 502.
func (h *InspectionHandler) Summary(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.records.GenerateAIReport(c.Request.Context(), id)
	var ext *service.ExternalServiceError
	if errors.As(err, &ext) {
		c.JSON(http.StatusBadGateway, gin.H{"error": ext.Message, "ai_report": out.Text})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if sess, ok := h.sessions.Get(c.GetString(middleware.KeySID)); ok && sess.Snapshot().EditID == id {
		h.ctl.SetAIReport(sess, out.Text)
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/inspections/:id/report.html
func (h *InspectionHandler) ReportHTML(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.inspections.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	html, err := report.RenderHTML(rec, rec.AIReport)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// GET /api/inspections/:id/report.pdf
func (h *InspectionHandler) ReportPDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.inspections.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := report.RenderPDF(rec, rec.AIReport)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=inspection_%d.pdf", id))
	c.Data(http.StatusOK, "application/pdf", data)
}

// GET /api/inspections/buildings
func (h *InspectionHandler) Buildings(c *gin.Context) {
	out, err := h.inspections.DistinctBuildings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/inspections/inspectors
func (h *InspectionHandler) Inspectors(c *gin.Context) {
	out, err := h.inspections.DistinctInspectors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/stats
// Falls back to file-store statistics when the database is down.
func (h *InspectionHandler) Stats(c *gin.Context) {
	stats, err := h.inspections.Stats(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, stats)
		return
	}
	if !service.IsConnection(err) {
		respondError(c, err)
		return
	}
	fileStats, err := h.files.SummaryStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fileStats)
}
