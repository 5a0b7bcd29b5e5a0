package balance

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	GetOrCreate(ctx context.Context, professionalID int64, currency string) (*Balance, error)

	// Credit adds released escrow funds to the professional's available
	// balance, creating a zero balance row first if absent.
	Credit(ctx context.Context, professionalID int64, amount decimal.Decimal, currency, reference string) error

	// RequestPayout checks available funds and moves the amount from
	// available to pending in the same transaction, so two concurrent
	// requests cannot jointly overdraw.
	RequestPayout(ctx context.Context, professionalID int64, amount decimal.Decimal, destinationAccount string) (*Payout, error)

	GetPayout(ctx context.Context, id int64) (*Payout, error)
	ListPayouts(ctx context.Context, professionalID int64) ([]Payout, error)

	MarkPayoutProcessing(ctx context.Context, id int64) (bool, error)
	// CompletePayout clears the pending reservation after a successful
	// transfer; ReturnPayout puts the funds back on failure/cancellation.
	CompletePayout(ctx context.Context, id int64) error
	ReturnPayout(ctx context.Context, id int64, to PayoutStatus) error

	ListEntries(ctx context.Context, professionalID int64, limit, offset int) ([]Entry, error)
}
