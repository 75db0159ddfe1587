package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appfund "github.com/openfund/backend/internal/application/fund"
	"github.com/openfund/backend/internal/infrastructure/persistence"
)

// SystemHandler handles health checks and release status
type SystemHandler struct {
	BaseHandler
	service *appfund.Service
	db      *persistence.Database
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(service *appfund.Service, db *persistence.Database) *SystemHandler {
	return &SystemHandler{service: service, db: db}
}

// Health handles GET /healthz
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status})
}

// ReleaseStatus handles GET /api/v1/releases/status
func (h *SystemHandler) ReleaseStatus(c *gin.Context) {
	h.Success(c, h.service.ReleaseStatus(c.Request.Context()))
}

// SetReleaseStatus handles PUT /api/v1/releases/status
func (h *SystemHandler) SetReleaseStatus(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req appfund.SetReleaseStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.SetReleaseStatus(c.Request.Context(), principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
