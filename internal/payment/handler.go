package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/gateway"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/logger"
)

type Handler struct {
	service Service
	gateway gateway.Adapter
}

func NewHandler(service Service, gw gateway.Adapter) *Handler {
	return &Handler{service: service, gateway: gw}
}

type CreateIntentRequest struct {
	BookingID   *int64          `json:"booking_id"`
	OrderID     *int64          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"required"`
	InvoiceKind InvoiceKind     `json:"invoice_kind" binding:"required"`
	InvoiceData *InvoiceData    `json:"invoice_data,omitempty"`
}

type CaptureRequest struct {
	ExternalRef string `json:"external_ref" binding:"required"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// CreateIntent godoc
// @Summary      Create payment intent
// @Description  Authorizes a hold on the customer's instrument and records a pending payment.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateIntentRequest  true  "Intent parameters"
// @Success      201      {object}  IntentResult
// @Failure      400      {object}  gin.H
// @Failure      502      {object}  gin.H
// @Router       /payments/intent [post]
func (h *Handler) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.CreateIntent(c.Request.Context(), CreateIntentInput{
		BookingID:   req.BookingID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		InvoiceKind: req.InvoiceKind,
		InvoiceData: req.InvoiceData,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Capture godoc
// @Summary      Capture an authorized payment into escrow
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CaptureRequest  true  "External payment reference"
// @Success      200      {object}  Payment
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /payments/capture [post]
func (h *Handler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_ref is required"})
		return
	}

	p, err := h.service.Capture(c.Request.Context(), req.ExternalRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Refund godoc
// @Summary      Refund a captured payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        paymentID  path      int            true   "Payment ID"
// @Param        request    body      RefundRequest  false  "Optional partial amount and reason"
// @Success      200        {object}  Payment
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /payments/{paymentID}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("paymentID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, err := h.service.Refund(c.Request.Context(), paymentID, req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Release godoc
// @Summary      Release escrowed funds for a completed booking
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  ReleaseResult
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/release [post]
func (h *Handler) Release(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("bookingID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	result, err := h.service.Release(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Webhook godoc
// @Summary      Gateway webhook receiver
// @Description  Verifies the signature and reconciles the reported event.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Gateway-Signature  header    string  true  "HMAC signature of the payload"
// @Success      200  {object}  gin.H
// @Failure      400  {object}  gin.H
// @Router       /webhooks/gateway [post]
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	event, err := h.gateway.VerifyWebhookSignature(payload, c.GetHeader("X-Gateway-Signature"))
	if err != nil {
		logger.Error("webhook rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.service.OnGatewayEvent(c.Request.Context(), *event); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrBookingNotCompleted), errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
