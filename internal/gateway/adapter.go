package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable marks gateway calls that failed or timed out. Callers
	// must not advance local payment state when they see it; the operation
	// is safe to retry.
	ErrUnavailable = errors.New("payment gateway unavailable")

	ErrBadSignature = errors.New("invalid webhook signature")
)

// EventKind is a gateway-reported terminal event for a charge.
type EventKind string

const (
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventCanceled  EventKind = "canceled"
	EventRefunded  EventKind = "refunded"
)

// Event is a verified webhook notification.
type Event struct {
	Kind        EventKind `json:"kind"`
	ExternalRef string    `json:"external_ref"`
}

// Authorization is the result of placing a hold on a customer's
// instrument. ExternalRef is the gateway's opaque id for the charge;
// ClientHandle is forwarded to the frontend to confirm the payment.
type Authorization struct {
	ExternalRef  string `json:"external_ref"`
	ClientHandle string `json:"client_handle"`
}

// Adapter is the opaque payment gateway capability. No raw instrument
// data ever passes through it; implementations only exchange amounts and
// opaque references.
type Adapter interface {
	AuthorizeAndHold(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Authorization, error)
	Capture(ctx context.Context, externalRef string) error
	Refund(ctx context.Context, externalRef string, amount *decimal.Decimal, reason string) error
	Transfer(ctx context.Context, amount decimal.Decimal, currency, destinationAccount string) error
	VerifyWebhookSignature(payload []byte, signature string) (*Event, error)
}
