package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/booking"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/logger"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/metrics"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/notify"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/payment"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/tax"
)

var (
	ErrWrongKind  = errors.New("payment has the wrong invoice kind for this document")
	ErrNotSettled = errors.New("payment is not settled")
)

type Service interface {
	GenerateInvoice(ctx context.Context, paymentID int64, data *payment.InvoiceData) (*Invoice, error)
	GenerateReceipt(ctx context.Context, paymentID int64) (*Receipt, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, []LineItem, error)
}

type service struct {
	repo        Repository
	paymentRepo payment.Repository
	bookingRepo booking.Repository
	notifier    notify.Sender
	taxCfg      tax.Config
	now         func() time.Time
}

func NewService(
	repo Repository,
	paymentRepo payment.Repository,
	bookingRepo booking.Repository,
	notifier notify.Sender,
	taxCfg tax.Config,
) Service {
	return &service{
		repo:        repo,
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		notifier:    notifier,
		taxCfg:      taxCfg,
		now:         time.Now,
	}
}

func (s *service) GenerateInvoice(ctx context.Context, paymentID int64, data *payment.InvoiceData) (*Invoice, error) {
	p, err := s.settledPayment(ctx, paymentID, payment.WithInvoice)
	if err != nil {
		return nil, err
	}

	// Idempotency check before any sequence allocation. Safe to call
	// again after a failed notification.
	if existing, err := s.repo.GetInvoiceByKey(ctx, p.BookingID, p.OrderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, err
	}

	if data == nil {
		data, err = s.paymentRepo.GetInvoiceData(ctx, paymentID)
		if err != nil {
			return nil, err
		}
	}

	// Payment.Amount is tax-inclusive at this point, so the breakdown is
	// the backward extraction.
	breakdown, err := tax.Extract(p.Amount, s.taxCfg.RateFor(data.Jurisdiction))
	if err != nil {
		return nil, err
	}

	draft := &Invoice{
		PaymentID: p.ID,
		BookingID: p.BookingID,
		OrderID:   p.OrderID,
		Subtotal:  breakdown.Subtotal,
		TaxRate:   breakdown.TaxRate,
		TaxAmount: breakdown.TaxAmount,
		Total:     breakdown.Total,
		IssueDate: s.now(),
	}

	created, err := s.repo.CreateInvoice(ctx, draft, []LineItem{{
		Description: describeSource(p),
		Amount:      breakdown.Total,
	}})
	if err != nil {
		return nil, err
	}

	if created.DocumentRef == "" {
		created.DocumentRef = documentRef("invoices", created.Number)
	}

	metrics.RecordDocument("invoice")
	logger.Info("invoice issued", "invoice_id", created.ID, "number", created.Number, "payment_id", p.ID)

	s.notifyDocument(ctx, p, notify.KindInvoiceIssued, created.Number)

	return created, nil
}

func (s *service) GenerateReceipt(ctx context.Context, paymentID int64) (*Receipt, error) {
	p, err := s.settledPayment(ctx, paymentID, payment.WithoutInvoice)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetReceiptByKey(ctx, p.BookingID, p.OrderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrReceiptNotFound) {
		return nil, err
	}

	draft := &Receipt{
		PaymentID: p.ID,
		BookingID: p.BookingID,
		OrderID:   p.OrderID,
		Total:     p.Amount,
		IssueDate: s.now(),
	}

	created, err := s.repo.CreateReceipt(ctx, draft)
	if err != nil {
		return nil, err
	}

	if created.DocumentRef == "" {
		created.DocumentRef = documentRef("receipts", created.Number)
	}

	metrics.RecordDocument("receipt")
	logger.Info("receipt issued", "receipt_id", created.ID, "number", created.Number, "payment_id", p.ID)

	s.notifyDocument(ctx, p, notify.KindReceiptIssued, created.Number)

	return created, nil
}

func (s *service) GetInvoice(ctx context.Context, invoiceID int64) (*Invoice, []LineItem, error) {
	inv, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.repo.ListLineItems(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}

	return inv, items, nil
}

func (s *service) settledPayment(ctx context.Context, paymentID int64, kind payment.InvoiceKind) (*payment.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if p.InvoiceKind == nil || *p.InvoiceKind != kind {
		return nil, fmt.Errorf("%w: want %s", ErrWrongKind, kind)
	}
	if p.Status != payment.StatusCaptured && p.Status != payment.StatusReleased {
		return nil, fmt.Errorf("%w: payment %d is %s", ErrNotSettled, p.ID, p.Status)
	}

	return p, nil
}

// notifyDocument is best-effort; a delivery failure never undoes the
// generated document.
func (s *service) notifyDocument(ctx context.Context, p *payment.Payment, kind, number string) {
	userID := s.customerFor(ctx, p)
	if userID == 0 {
		return
	}

	if err := s.notifier.Notify(ctx, userID, kind, map[string]interface{}{
		"number": number,
		"amount": p.Amount.StringFixed(2),
	}); err != nil {
		logger.Error("billing notification failed", "payment_id", p.ID, "error", err)
	}
}

func (s *service) customerFor(ctx context.Context, p *payment.Payment) int64 {
	if p.BookingID == nil {
		return 0
	}
	b, err := s.bookingRepo.GetByID(ctx, *p.BookingID)
	if err != nil {
		return 0
	}
	return b.CustomerID
}

func describeSource(p *payment.Payment) string {
	if p.BookingID != nil {
		return fmt.Sprintf("Booking #%d", *p.BookingID)
	}
	return fmt.Sprintf("Order #%d", *p.OrderID)
}

func documentRef(kind, number string) string {
	return fmt.Sprintf("/documents/%s/%s.pdf", kind, number)
}
