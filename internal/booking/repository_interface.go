package booking

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Booking, error)
	// ListReleasable returns completed bookings whose captured payment is
	// past the escrow hold, i.e. completed_at <= cutoff.
	ListReleasable(ctx context.Context, cutoff time.Time) ([]Booking, error)
}
