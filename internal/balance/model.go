package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance — баланс мастера. Available is the only amount a professional
// may request as payout; Pending holds amounts reserved by in-flight
// payouts. Mutated only through Repository methods.
type Balance struct {
	ID             int64           `db:"id" json:"id"`
	ProfessionalID int64           `db:"professional_id" json:"professional_id"`
	Available      decimal.Decimal `db:"available" json:"available"`
	Pending        decimal.Decimal `db:"pending" json:"pending"`
	Currency       string          `db:"currency" json:"currency"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Entry is the append-only log of balance mutations.
type Entry struct {
	ID             int64           `db:"id" json:"id"`
	BalanceID      int64           `db:"balance_id" json:"balance_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Kind           string          `db:"kind" json:"kind"` // credit, payout_hold, payout_completed, payout_returned
	Reference      string          `db:"reference" json:"reference"`
	AvailableAfter decimal.Decimal `db:"available_after" json:"available_after"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
	PayoutCancelled  PayoutStatus = "cancelled"
)

type Payout struct {
	ID                 int64           `db:"id" json:"id"`
	ProfessionalID     int64           `db:"professional_id" json:"professional_id"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Currency           string          `db:"currency" json:"currency"`
	Status             PayoutStatus    `db:"status" json:"status"`
	DestinationAccount string          `db:"destination_account" json:"destination_account"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}
