package handler

import (
	"github.com/gin-gonic/gin"
	appfund "github.com/openfund/backend/internal/application/fund"
)

// MigrationHandler handles fund controller migrations
type MigrationHandler struct {
	BaseHandler
	service *appfund.Service
}

// NewMigrationHandler creates a new MigrationHandler
func NewMigrationHandler(service *appfund.Service) *MigrationHandler {
	return &MigrationHandler{service: service}
}

// Get handles GET /api/v1/funds/:id/migration
func (h *MigrationHandler) Get(c *gin.Context) {
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	resp, err := h.service.GetMigration(c.Request.Context(), fundID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Signal handles POST /api/v1/funds/:id/migration/signal
func (h *MigrationHandler) Signal(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	var req appfund.SignalMigrationRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.SignalMigration(c.Request.Context(), fundID, principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Execute handles POST /api/v1/funds/:id/migration/execute
func (h *MigrationHandler) Execute(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	var req appfund.MigrationActionRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.ExecuteMigration(c.Request.Context(), fundID, principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /api/v1/funds/:id/migration/cancel
func (h *MigrationHandler) Cancel(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	var req appfund.MigrationActionRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CancelMigration(c.Request.Context(), fundID, principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
