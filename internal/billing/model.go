package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice — фискальный документ, ровно один на расчитанный платёж.
// Number follows INV-<year>-<seq> with a six-digit, year-scoped,
// never-reused sequence.
type Invoice struct {
	ID          int64           `db:"id" json:"id"`
	Number      string          `db:"number" json:"number"`
	PaymentID   int64           `db:"payment_id" json:"payment_id"`
	BookingID   *int64          `db:"booking_id" json:"booking_id,omitempty"`
	OrderID     *int64          `db:"order_id" json:"order_id,omitempty"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxRate     decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxAmount   decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Total       decimal.Decimal `db:"total" json:"total"`
	IssueDate   time.Time       `db:"issue_date" json:"issue_date"`
	DocumentRef string          `db:"document_ref" json:"document_ref"`
}

// Receipt carries no tax breakdown; the total is copied verbatim from
// the payment.
type Receipt struct {
	ID          int64           `db:"id" json:"id"`
	Number      string          `db:"number" json:"number"`
	PaymentID   int64           `db:"payment_id" json:"payment_id"`
	BookingID   *int64          `db:"booking_id" json:"booking_id,omitempty"`
	OrderID     *int64          `db:"order_id" json:"order_id,omitempty"`
	Total       decimal.Decimal `db:"total" json:"total"`
	IssueDate   time.Time       `db:"issue_date" json:"issue_date"`
	DocumentRef string          `db:"document_ref" json:"document_ref"`
}

type LineItem struct {
	ID          int64           `db:"id" json:"id"`
	InvoiceID   int64           `db:"invoice_id" json:"invoice_id"`
	Description string          `db:"description" json:"description"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}

func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%04d-%06d", year, seq)
}

func FormatReceiptNumber(year int, seq int64) string {
	return fmt.Sprintf("REC-%04d-%06d", year, seq)
}
