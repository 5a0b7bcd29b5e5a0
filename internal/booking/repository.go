package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("booking not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query := `
		SELECT id, customer_id, professional_id, status, completed_at, created_at
		FROM bookings
		WHERE id = $1
	`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &b, nil
}

func (r *repository) ListReleasable(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	query := `
		SELECT b.id, b.customer_id, b.professional_id, b.status, b.completed_at, b.created_at
		FROM bookings b
		JOIN payments p ON p.booking_id = b.id
		WHERE b.status = 'completed'
		  AND p.status = 'captured'
		  AND b.completed_at <= $1
		ORDER BY b.completed_at ASC
	`

	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, query, cutoff)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}
