package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *Payment, data *InvoiceData) (*Payment, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*Payment, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*Payment, error)
	GetInvoiceData(ctx context.Context, paymentID int64) (*InvoiceData, error)

	// Transition moves a payment from one of the given statuses to the
	// target status as a single compare-and-swap. It returns false when
	// the payment was not in an allowed status (lost race or illegal
	// transition) without touching the row.
	Transition(ctx context.Context, id int64, from []Status, to Status) (bool, error)
	TransitionByRef(ctx context.Context, externalRef string, from []Status, to Status) (bool, error)

	// MarkReleased is the captured→released CAS that also persists the
	// commission split.
	MarkReleased(ctx context.Context, id int64, platformFee, professionalAmount decimal.Decimal) (bool, error)
}
