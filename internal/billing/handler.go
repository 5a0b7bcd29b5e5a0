package billing

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/payment"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type GenerateInvoiceRequest struct {
	InvoiceData *payment.InvoiceData `json:"invoice_data,omitempty"`
}

type InvoiceResponse struct {
	Invoice   *Invoice   `json:"invoice"`
	LineItems []LineItem `json:"line_items,omitempty"`
}

// GenerateInvoice godoc
// @Summary      Generate a fiscal invoice for a settled payment
// @Description  Idempotent: repeat calls return the already issued invoice.
// @Tags         billing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        paymentID  path      int                     true   "Payment ID"
// @Param        request    body      GenerateInvoiceRequest  false  "Override invoice data"
// @Success      201        {object}  Invoice
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /payments/{paymentID}/invoice [post]
func (h *Handler) GenerateInvoice(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("paymentID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var req GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	inv, err := h.service.GenerateInvoice(c.Request.Context(), paymentID, req.InvoiceData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// GenerateReceipt godoc
// @Summary      Generate a simple receipt for a settled payment
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      int  true  "Payment ID"
// @Success      201        {object}  Receipt
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /payments/{paymentID}/receipt [post]
func (h *Handler) GenerateReceipt(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("paymentID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	rec, err := h.service.GenerateReceipt(c.Request.Context(), paymentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// GetInvoice godoc
// @Summary      Get an invoice with its line items
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceID  path      int  true  "Invoice ID"
// @Success      200        {object}  InvoiceResponse
// @Failure      404        {object}  gin.H
// @Router       /invoices/{invoiceID} [get]
func (h *Handler) GetInvoice(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoiceID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	inv, items, err := h.service.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, InvoiceResponse{Invoice: inv, LineItems: items})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrReceiptNotFound),
		errors.Is(err, payment.ErrPaymentNotFound), errors.Is(err, payment.ErrInvoiceDataNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrWrongKind), errors.Is(err, ErrNotSettled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
