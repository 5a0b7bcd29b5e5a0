package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/gateway"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/logger"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/metrics"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/notify"
)

var ErrInvalidAmount = errors.New("payout amount must be positive")

type Service interface {
	GetBalance(ctx context.Context, professionalID int64, currency string) (*Balance, error)
	RequestPayout(ctx context.Context, professionalID int64, amount decimal.Decimal, destinationAccount string) (*Payout, error)
	ProcessPayout(ctx context.Context, payoutID int64) (*Payout, error)
	CancelPayout(ctx context.Context, payoutID, professionalID int64) error
	ListPayouts(ctx context.Context, professionalID int64) ([]Payout, error)
	ListEntries(ctx context.Context, professionalID int64, limit, offset int) ([]Entry, error)
}

type service struct {
	repo     Repository
	gateway  gateway.Adapter
	notifier notify.Sender
}

func NewService(repo Repository, gw gateway.Adapter, notifier notify.Sender) Service {
	return &service{repo: repo, gateway: gw, notifier: notifier}
}

func (s *service) GetBalance(ctx context.Context, professionalID int64, currency string) (*Balance, error) {
	return s.repo.GetOrCreate(ctx, professionalID, currency)
}

func (s *service) RequestPayout(ctx context.Context, professionalID int64, amount decimal.Decimal, destinationAccount string) (*Payout, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if destinationAccount == "" {
		return nil, errors.New("destination account is required")
	}

	payout, err := s.repo.RequestPayout(ctx, professionalID, amount, destinationAccount)
	if err != nil {
		return nil, err
	}

	metrics.RecordPayout(string(PayoutPending))
	logger.Info("payout requested",
		"payout_id", payout.ID,
		"professional_id", professionalID,
		"amount", amount.StringFixed(2),
	)

	return payout, nil
}

// ProcessPayout sends the held amount to the professional's external
// account. Transfer failure returns the funds to available.
func (s *service) ProcessPayout(ctx context.Context, payoutID int64) (*Payout, error) {
	ok, err := s.repo.MarkPayoutProcessing(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payout %d is not pending", ErrInvalidPayoutState, payoutID)
	}

	payout, err := s.repo.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Transfer(ctx, payout.Amount, payout.Currency, payout.DestinationAccount); err != nil {
		logger.Error("payout transfer failed", "payout_id", payoutID, "error", err)

		if returnErr := s.repo.ReturnPayout(ctx, payoutID, PayoutFailed); returnErr != nil {
			logger.Error("failed to return payout funds", "payout_id", payoutID, "error", returnErr)
			return nil, returnErr
		}
		metrics.RecordPayout(string(PayoutFailed))

		s.notifyPayout(ctx, payout, notify.KindPayoutFailed)
		return nil, err
	}

	if err := s.repo.CompletePayout(ctx, payoutID); err != nil {
		return nil, err
	}
	metrics.RecordPayout(string(PayoutCompleted))

	s.notifyPayout(ctx, payout, notify.KindPayoutCompleted)
	logger.Info("payout completed", "payout_id", payoutID, "amount", payout.Amount.StringFixed(2))

	return s.repo.GetPayout(ctx, payoutID)
}

func (s *service) CancelPayout(ctx context.Context, payoutID, professionalID int64) error {
	payout, err := s.repo.GetPayout(ctx, payoutID)
	if err != nil {
		return err
	}
	if payout.ProfessionalID != professionalID {
		return ErrPayoutNotFound
	}
	if payout.Status != PayoutPending {
		return fmt.Errorf("%w: only pending payouts can be cancelled", ErrInvalidPayoutState)
	}

	if err := s.repo.ReturnPayout(ctx, payoutID, PayoutCancelled); err != nil {
		return err
	}

	metrics.RecordPayout(string(PayoutCancelled))
	return nil
}

func (s *service) ListPayouts(ctx context.Context, professionalID int64) ([]Payout, error) {
	return s.repo.ListPayouts(ctx, professionalID)
}

func (s *service) ListEntries(ctx context.Context, professionalID int64, limit, offset int) ([]Entry, error) {
	return s.repo.ListEntries(ctx, professionalID, limit, offset)
}

func (s *service) notifyPayout(ctx context.Context, payout *Payout, kind string) {
	if err := s.notifier.Notify(ctx, payout.ProfessionalID, kind, map[string]interface{}{
		"payout_id": payout.ID,
		"amount":    payout.Amount.StringFixed(2),
		"currency":  payout.Currency,
	}); err != nil {
		logger.Error("payout notification failed", "payout_id", payout.ID, "error", err)
	}
}
