package billing

import "context"

type Repository interface {
	GetInvoiceByID(ctx context.Context, id int64) (*Invoice, error)
	// GetInvoiceByKey looks an invoice up by its payment's billable
	// source; exactly one of bookingID/orderID is non-nil.
	GetInvoiceByKey(ctx context.Context, bookingID, orderID *int64) (*Invoice, error)
	GetReceiptByKey(ctx context.Context, bookingID, orderID *int64) (*Receipt, error)
	ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error)

	// CreateInvoice allocates the next yearly sequence number and inserts
	// the invoice and its line items in one transaction. The payment row
	// is locked first, so a concurrent call for the same payment either
	// blocks and then sees the existing invoice (returned unchanged, no
	// sequence consumed) or wins the insert.
	CreateInvoice(ctx context.Context, inv *Invoice, items []LineItem) (*Invoice, error)
	CreateReceipt(ctx context.Context, rec *Receipt) (*Receipt, error)
}
