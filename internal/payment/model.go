package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusReleased   Status = "released"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusReleased || s == StatusRefunded || s == StatusFailed
}

type InvoiceKind string

const (
	WithInvoice    InvoiceKind = "with_invoice"
	WithoutInvoice InvoiceKind = "without_invoice"
)

// Payment — одна запись на попытку оплаты бронирования или заказа.
// Exactly one of BookingID/OrderID is set. Amount is tax-inclusive for
// with_invoice payments. PlatformFee and ProfessionalAmount are written
// once, on release, and always sum exactly to Amount.
type Payment struct {
	ID                 int64               `db:"id" json:"id"`
	BookingID          *int64              `db:"booking_id" json:"booking_id,omitempty"`
	OrderID            *int64              `db:"order_id" json:"order_id,omitempty"`
	Amount             decimal.Decimal     `db:"amount" json:"amount"`
	Currency           string              `db:"currency" json:"currency"`
	Status             Status              `db:"status" json:"status"`
	ExternalRef        string              `db:"external_ref" json:"external_ref"`
	InvoiceKind        *InvoiceKind        `db:"invoice_kind" json:"invoice_kind,omitempty"`
	TaxAmount          decimal.Decimal     `db:"tax_amount" json:"tax_amount"`
	PlatformFee        decimal.NullDecimal `db:"platform_fee" json:"platform_fee,omitempty"`
	ProfessionalAmount decimal.NullDecimal `db:"professional_amount" json:"professional_amount,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"created_at"`
}

// InvoiceData is the customer's fiscal identity captured at intent time
// for with_invoice payments. TaxID is stored encrypted.
type InvoiceData struct {
	PaymentID    int64  `db:"payment_id" json:"-"`
	TaxID        string `db:"tax_id" json:"tax_id"`
	LegalName    string `db:"legal_name" json:"legal_name"`
	Address      string `db:"address" json:"address,omitempty"`
	Jurisdiction string `db:"jurisdiction" json:"jurisdiction,omitempty"`
}
