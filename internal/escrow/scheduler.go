package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/booking"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/logger"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/metrics"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/payment"
)

// Status is the synchronous escrow view for a booking, consumed by the
// UI layer.
type Status struct {
	BookingID  int64      `json:"booking_id"`
	Held       bool       `json:"held"`
	ReleaseAt  *time.Time `json:"release_at,omitempty"`
	CanRelease bool       `json:"can_release"`
}

// Scheduler periodically releases escrow for completed bookings whose
// hold period has elapsed. Release itself is the idempotency guard: a
// booking released in one run has no captured payment and drops out of
// the next scan.
type Scheduler struct {
	payments payment.Service
	bookings booking.Repository
	hold     time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewScheduler(payments payment.Service, bookings booking.Repository, hold, interval time.Duration) *Scheduler {
	return &Scheduler{
		payments: payments,
		bookings: bookings,
		hold:     hold,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Infof("Escrow scheduler started, interval %s, hold %s", s.interval, s.hold)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Escrow scheduler stopped")
			return
		case <-ticker.C:
			s.RunSweep(ctx)
		}
	}
}

// RunSweep releases every eligible booking once. A failure on one
// booking never aborts the rest; the failed booking stays captured and
// is picked up again by the next sweep.
func (s *Scheduler) RunSweep(ctx context.Context) (released, failed int) {
	cutoff := s.now().Add(-s.hold)

	candidates, err := s.bookings.ListReleasable(ctx, cutoff)
	if err != nil {
		logger.Error("escrow sweep failed to list candidates", "error", err)
		metrics.RecordSweep(1)
		return 0, 1
	}

	for _, b := range candidates {
		if _, err := s.payments.Release(ctx, b.ID); err != nil {
			failed++
			logger.Error("escrow sweep release failed", "booking_id", b.ID, "error", err)
			continue
		}
		released++
	}

	metrics.RecordSweep(failed)
	if released > 0 || failed > 0 {
		logger.Info("escrow sweep finished", "released", released, "failed", failed)
	}

	return released, failed
}

// GetStatus reports whether funds for a booking are held and when they
// become eligible for release.
func (s *Scheduler) GetStatus(ctx context.Context, bookingID int64) (*Status, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	status := &Status{BookingID: b.ID}

	pay, err := s.payments.GetByBookingID(ctx, b.ID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return status, nil
		}
		return nil, err
	}

	status.Held = pay.Status == payment.StatusCaptured
	if !status.Held {
		return status, nil
	}

	if b.CompletedAt != nil {
		releaseAt := b.CompletedAt.Add(s.hold)
		status.ReleaseAt = &releaseAt
		status.CanRelease = b.Status == booking.StatusCompleted && !s.now().Before(releaseAt)
	}

	return status, nil
}
