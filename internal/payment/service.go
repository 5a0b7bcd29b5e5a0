package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/balance"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/booking"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/gateway"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/logger"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/metrics"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/notify"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/tax"
)

var (
	ErrValidation          = errors.New("invalid payment request")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingNotCompleted = errors.New("booking is not completed")
	ErrInvalidState        = errors.New("payment is not in a valid state for this operation")
	ErrInvoiceDataNotFound = errors.New("invoice data not found")
)

type CreateIntentInput struct {
	BookingID   *int64
	OrderID     *int64
	Amount      decimal.Decimal
	Currency    string
	InvoiceKind InvoiceKind
	InvoiceData *InvoiceData
}

type IntentResult struct {
	PaymentID    int64           `json:"payment_id"`
	ClientHandle string          `json:"client_handle"`
	Amount       decimal.Decimal `json:"amount"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
}

type ReleaseResult struct {
	PaymentID          int64           `json:"payment_id"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	ProfessionalAmount decimal.Decimal `json:"professional_amount"`
}

type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error)
	Capture(ctx context.Context, externalRef string) (*Payment, error)
	Release(ctx context.Context, bookingID int64) (*ReleaseResult, error)
	Refund(ctx context.Context, paymentID int64, amount *decimal.Decimal, reason string) (*Payment, error)
	OnGatewayEvent(ctx context.Context, event gateway.Event) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*Payment, error)
}

type service struct {
	repo        Repository
	bookingRepo booking.Repository
	balanceRepo balance.Repository
	gateway     gateway.Adapter
	notifier    notify.Sender
	taxCfg      tax.Config
}

func NewService(
	repo Repository,
	bookingRepo booking.Repository,
	balanceRepo balance.Repository,
	gw gateway.Adapter,
	notifier notify.Sender,
	taxCfg tax.Config,
) Service {
	return &service{
		repo:        repo,
		bookingRepo: bookingRepo,
		balanceRepo: balanceRepo,
		gateway:     gw,
		notifier:    notifier,
		taxCfg:      taxCfg,
	}
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if (input.BookingID == nil) == (input.OrderID == nil) {
		return nil, fmt.Errorf("%w: exactly one of booking_id or order_id must be set", ErrValidation)
	}
	if input.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrValidation)
	}
	if input.InvoiceKind != WithInvoice && input.InvoiceKind != WithoutInvoice {
		return nil, fmt.Errorf("%w: unknown invoice kind %q", ErrValidation, input.InvoiceKind)
	}

	amount := input.Amount
	taxAmount := decimal.Zero

	// With an invoice the caller-supplied amount is pre-tax; the payment
	// is charged and persisted tax-inclusive.
	if input.InvoiceKind == WithInvoice {
		if input.InvoiceData == nil || input.InvoiceData.TaxID == "" {
			return nil, fmt.Errorf("%w: invoice data with tax id is required for with_invoice payments", ErrValidation)
		}

		breakdown, err := tax.Calculate(input.Amount, s.taxCfg.RateFor(input.InvoiceData.Jurisdiction))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		amount = breakdown.Total
		taxAmount = breakdown.TaxAmount
	}

	metadata := map[string]string{}
	if input.BookingID != nil {
		metadata["booking_id"] = strconv.FormatInt(*input.BookingID, 10)
	}
	if input.OrderID != nil {
		metadata["order_id"] = strconv.FormatInt(*input.OrderID, 10)
	}

	auth, err := s.gateway.AuthorizeAndHold(ctx, amount, input.Currency, metadata)
	if err != nil {
		return nil, err
	}

	kind := input.InvoiceKind
	created, err := s.repo.Create(ctx, &Payment{
		BookingID:   input.BookingID,
		OrderID:     input.OrderID,
		Amount:      amount,
		Currency:    input.Currency,
		Status:      StatusPending,
		ExternalRef: auth.ExternalRef,
		InvoiceKind: &kind,
		TaxAmount:   taxAmount,
	}, input.InvoiceData)
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentTransition(string(StatusPending))
	logger.Info("payment intent created",
		"payment_id", created.ID,
		"external_ref", created.ExternalRef,
		"amount", created.Amount.StringFixed(2),
	)

	return &IntentResult{
		PaymentID:    created.ID,
		ClientHandle: auth.ClientHandle,
		Amount:       created.Amount,
		TaxAmount:    created.TaxAmount,
	}, nil
}

// Capture moves authorized funds into escrow. Both pending and
// authorized are accepted because the gateway's succeeded webhook may
// land before the capture call.
func (s *service) Capture(ctx context.Context, externalRef string) (*Payment, error) {
	p, err := s.repo.GetByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}

	if p.Status != StatusPending && p.Status != StatusAuthorized {
		return nil, fmt.Errorf("%w: cannot capture payment in status %s", ErrInvalidState, p.Status)
	}

	// Gateway first. If the call fails the local row stays put and the
	// capture can be retried.
	if err := s.gateway.Capture(ctx, externalRef); err != nil {
		return nil, err
	}

	ok, err := s.repo.Transition(ctx, p.ID, []Status{StatusPending, StatusAuthorized}, StatusCaptured)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment %d changed state during capture", ErrInvalidState, p.ID)
	}

	metrics.RecordPaymentTransition(string(StatusCaptured))
	logger.Info("payment captured", "payment_id", p.ID, "external_ref", externalRef)

	return s.repo.GetByID(ctx, p.ID)
}

func (s *service) Release(ctx context.Context, bookingID int64) (*ReleaseResult, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if b.Status != booking.StatusCompleted {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrBookingNotCompleted, bookingID, b.Status)
	}

	p, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if p.Status != StatusCaptured {
		return nil, fmt.Errorf("%w: payment %d is %s", ErrInvalidState, p.ID, p.Status)
	}

	platformFee, professionalAmount, err := tax.Split(p.Amount, s.taxCfg.CommissionRate)
	if err != nil {
		return nil, err
	}

	// The CAS below is the idempotency guard: of two concurrent releases
	// only one finds the payment still captured.
	ok, err := s.repo.MarkReleased(ctx, p.ID, platformFee, professionalAmount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment %d already settled", ErrInvalidState, p.ID)
	}

	reference := fmt.Sprintf("release:payment:%d", p.ID)
	if err := s.balanceRepo.Credit(ctx, b.ProfessionalID, professionalAmount, p.Currency, reference); err != nil {
		// The payment is already marked released; surfacing the error lets
		// operators reconcile the missing credit.
		logger.Error("failed to credit professional balance after release",
			"payment_id", p.ID,
			"professional_id", b.ProfessionalID,
			"error", err,
		)
		return nil, err
	}

	metrics.RecordPaymentTransition(string(StatusReleased))
	metrics.RecordRelease()
	logger.Info("escrow released",
		"payment_id", p.ID,
		"booking_id", bookingID,
		"platform_fee", platformFee.StringFixed(2),
		"professional_amount", professionalAmount.StringFixed(2),
	)

	// Best-effort: a notification failure never rolls back settlement.
	if err := s.notifier.Notify(ctx, b.ProfessionalID, notify.KindFundsReleased, map[string]interface{}{
		"booking_id": bookingID,
		"amount":     professionalAmount.StringFixed(2),
		"currency":   p.Currency,
	}); err != nil {
		logger.Error("settlement notification failed", "booking_id", bookingID, "error", err)
	}

	return &ReleaseResult{
		PaymentID:          p.ID,
		PlatformFee:        platformFee,
		ProfessionalAmount: professionalAmount,
	}, nil
}

// Refund is only legal while funds are in escrow. After release the
// professional's balance already carries the funds and a refund must go
// through a manual reversal instead.
func (s *service) Refund(ctx context.Context, paymentID int64, amount *decimal.Decimal, reason string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if p.Status != StatusCaptured {
		return nil, fmt.Errorf("%w: cannot refund payment in status %s", ErrInvalidState, p.Status)
	}
	if amount != nil && (amount.IsNegative() || amount.GreaterThan(p.Amount)) {
		return nil, fmt.Errorf("%w: refund amount out of range", ErrValidation)
	}

	if err := s.gateway.Refund(ctx, p.ExternalRef, amount, reason); err != nil {
		return nil, err
	}

	ok, err := s.repo.Transition(ctx, p.ID, []Status{StatusCaptured}, StatusRefunded)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment %d changed state during refund", ErrInvalidState, p.ID)
	}

	metrics.RecordPaymentTransition(string(StatusRefunded))
	logger.Info("payment refunded", "payment_id", p.ID, "reason", reason)

	return s.repo.GetByID(ctx, p.ID)
}

// OnGatewayEvent reconciles gateway-reported terminal events. Unknown
// references and already-settled payments are silent no-ops so webhook
// redelivery stays harmless.
func (s *service) OnGatewayEvent(ctx context.Context, event gateway.Event) error {
	var (
		from []Status
		to   Status
	)

	switch event.Kind {
	case gateway.EventSucceeded:
		from, to = []Status{StatusPending}, StatusAuthorized
	case gateway.EventFailed, gateway.EventCanceled:
		from, to = []Status{StatusPending, StatusAuthorized}, StatusFailed
	case gateway.EventRefunded:
		from, to = []Status{StatusCaptured}, StatusRefunded
	default:
		return fmt.Errorf("%w: unknown gateway event %q", ErrValidation, event.Kind)
	}

	ok, err := s.repo.TransitionByRef(ctx, event.ExternalRef, from, to)
	if err != nil {
		return err
	}
	if ok {
		metrics.RecordPaymentTransition(string(to))
		logger.Info("gateway event reconciled", "external_ref", event.ExternalRef, "status", string(to))
	} else {
		logger.Debug("gateway event ignored", "external_ref", event.ExternalRef, "kind", string(event.Kind))
	}

	return nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByBookingID(ctx context.Context, bookingID int64) (*Payment, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}
