package handler

import (
	"net/http"
	"strconv"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"
	"facility-inspect/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type FilesHandler struct{ files *service.FileStore }

func NewFilesHandler(files *service.FileStore) *FilesHandler { return &FilesHandler{files: files} }

// GET /api/files?limit=
func (h *FilesHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.files.List(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if out == nil {
		out = []model.RecordSummary{}
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/files/:name
func (h *FilesHandler) Get(c *gin.Context) {
	rec, err := h.files.Get(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GET /api/files/export.csv
func (h *FilesHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=inspections_export.csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	n, err := h.files.WriteCSV(c.Writer)
	if err != nil {
		logger.Error("export.csv_failed", "err", err)
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			respondError(c, err)
		}
		return
	}
	logger.Info("export.csv", "rows", n)
}

// GET /api/files/export.xlsx
func (h *FilesHandler) ExportXLSX(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=inspections_export.xlsx")
	c.Header("Content-Type", xlsxContentType)
	n, err := h.files.WriteXLSX(c.Writer)
	if err != nil {
		logger.Error("export.xlsx_failed", "err", err)
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			respondError(c, err)
		}
		return
	}
	logger.Info("export.xlsx", "rows", n)
}
