package handler

import (
	"github.com/gin-gonic/gin"
	appfund "github.com/openfund/backend/internal/application/fund"
)

// FundHandler handles fund lifecycle and investor operations
type FundHandler struct {
	BaseHandler
	service *appfund.Service
}

// NewFundHandler creates a new FundHandler
func NewFundHandler(service *appfund.Service) *FundHandler {
	return &FundHandler{service: service}
}

// Create handles POST /api/v1/funds
func (h *FundHandler) Create(c *gin.Context) {
	principal, err := getPrincipal(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req appfund.CreateFundRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CreateFund(c.Request.Context(), principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /api/v1/funds
func (h *FundHandler) List(c *gin.Context) {
	resp, err := h.service.ListFunds(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get handles GET /api/v1/funds/:id
func (h *FundHandler) Get(c *gin.Context) {
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	resp, err := h.service.GetFund(c.Request.Context(), fundID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Valuation handles GET /api/v1/funds/:id/valuation
func (h *FundHandler) Valuation(c *gin.Context) {
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	resp, err := h.service.GetValuation(c.Request.Context(), fundID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Balance handles GET /api/v1/funds/:id/balance
func (h *FundHandler) Balance(c *gin.Context) {
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
	resp, err := h.service.GetShareBalance(c.Request.Context(), fundID, principal)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Buy handles POST /api/v1/funds/:id/buy
func (h *FundHandler) Buy(c *gin.Context) {
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
	var req appfund.BuySharesRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.BuyShares(c.Request.Context(), fundID, principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Redeem handles POST /api/v1/funds/:id/redeem
func (h *FundHandler) Redeem(c *gin.Context) {
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
	var req appfund.RedeemSharesRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.RedeemShares(c.Request.Context(), fundID, principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Transfer handles POST /api/v1/funds/:id/transfer
func (h *FundHandler) Transfer(c *gin.Context) {
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
	var req appfund.TransferSharesRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.TransferShares(c.Request.Context(), fundID, principal, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"fund_id": fundID, "transferred": true})
}

// Integrate handles POST /api/v1/funds/:id/integrations
func (h *FundHandler) Integrate(c *gin.Context) {
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
	var req appfund.IntegrationCallRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.service.CallOnIntegration(c.Request.Context(), fundID, principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SettleFees handles POST /api/v1/funds/:id/fees/settle
func (h *FundHandler) SettleFees(c *gin.Context) {
	fundID, err := getFundID(c)
	if err != nil {
		h.BadRequest(c, "Invalid fund ID")
		return
	}
	if err := h.service.SettleFees(c.Request.Context(), fundID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"fund_id": fundID, "settled": true})
}
