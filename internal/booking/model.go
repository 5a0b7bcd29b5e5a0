package booking

import "time"

// Status values are owned by the booking subsystem; the settlement core
// only reads them.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
	StatusDisputed   Status = "disputed"
	StatusResolved   Status = "resolved"
)

type Booking struct {
	ID             int64      `db:"id" json:"id"`
	CustomerID     int64      `db:"customer_id" json:"customer_id"`
	ProfessionalID int64      `db:"professional_id" json:"professional_id"`
	Status         Status     `db:"status" json:"status"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
