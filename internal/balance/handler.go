package balance

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/auth"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/gateway"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type RequestPayoutRequest struct {
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	DestinationAccount string          `json:"destination_account" binding:"required"`
}

// GetBalance godoc
// @Summary      Get own balance
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        currency  query     string  false  "Currency code"  default(MXN)
// @Success      200       {object}  Balance
// @Failure      401       {object}  gin.H
// @Router       /balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	currency := c.DefaultQuery("currency", "MXN")

	b, err := h.service.GetBalance(c.Request.Context(), userID, currency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// RequestPayout godoc
// @Summary      Request a payout of available funds
// @Tags         balance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      RequestPayoutRequest  true  "Payout parameters"
// @Success      201      {object}  Payout
// @Failure      400      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /balance/payouts [post]
func (h *Handler) RequestPayout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and destination_account are required"})
		return
	}

	payout, err := h.service.RequestPayout(c.Request.Context(), userID, req.Amount, req.DestinationAccount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request payout"})
		}
		return
	}

	c.JSON(http.StatusCreated, payout)
}

// ProcessPayout godoc
// @Summary      Execute a pending payout
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        payoutID  path      int  true  "Payout ID"
// @Success      200       {object}  Payout
// @Failure      409       {object}  gin.H
// @Failure      502       {object}  gin.H
// @Router       /balance/payouts/{payoutID}/process [post]
func (h *Handler) ProcessPayout(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("payoutID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout ID"})
		return
	}

	payout, err := h.service.ProcessPayout(c.Request.Context(), payoutID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPayoutNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidPayoutState):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gateway.ErrUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payout transfer failed, funds returned"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payout"})
		}
		return
	}

	c.JSON(http.StatusOK, payout)
}

// CancelPayout godoc
// @Summary      Cancel own pending payout
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        payoutID  path      int  true  "Payout ID"
// @Success      200       {object}  gin.H
// @Failure      404       {object}  gin.H
// @Failure      409       {object}  gin.H
// @Router       /balance/payouts/{payoutID} [delete]
func (h *Handler) CancelPayout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	payoutID, err := strconv.ParseInt(c.Param("payoutID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout ID"})
		return
	}

	if err := h.service.CancelPayout(c.Request.Context(), payoutID, userID); err != nil {
		switch {
		case errors.Is(err, ErrPayoutNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidPayoutState):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel payout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payout cancelled"})
}

// ListPayouts godoc
// @Summary      List own payouts
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Payout
// @Failure      401  {object}  gin.H
// @Router       /balance/payouts [get]
func (h *Handler) ListPayouts(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	payouts, err := h.service.ListPayouts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
		return
	}

	c.JSON(http.StatusOK, payouts)
}

// ListEntries godoc
// @Summary      List own balance history
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"    default(50)
// @Param        offset  query     int  false  "Page offset"  default(0)
// @Success      200     {array}   Entry
// @Failure      401     {object}  gin.H
// @Router       /balance/entries [get]
func (h *Handler) ListEntries(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, err := h.service.ListEntries(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
