package handler

import (
	"net/http"

	"facility-inspect/internal/checklist"
	"facility-inspect/internal/model"

	"github.com/gin-gonic/gin"
)

type ChecklistHandler struct{}

func NewChecklistHandler() *ChecklistHandler { return &ChecklistHandler{} }

// GET /api/checklist
func (h *ChecklistHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"types":     checklist.Types(),
		"buildings": checklist.Buildings(),
		"levels":    checklist.APPALevels(),
	})
}

// GET /api/checklist/:type
func (h *ChecklistHandler) Categories(c *gin.Context) {
	typ, ok := model.ParseInspectionType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown inspection type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": typ, "categories": checklist.Catalog(typ)})
}
