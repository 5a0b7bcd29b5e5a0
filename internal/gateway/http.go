package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/metrics"
)

// HTTPAdapter talks to the gateway's REST API. Every mutating call sends
// a fresh Idempotency-Key so a retried request cannot double-charge.
type HTTPAdapter struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	client        *http.Client
}

func NewHTTPAdapter(baseURL, apiKey, webhookSecret string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAdapter{
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: timeout},
	}
}

type authorizeRequest struct {
	Amount   string            `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type captureRequest struct {
	ExternalRef string `json:"external_ref"`
}

type refundRequest struct {
	ExternalRef string  `json:"external_ref"`
	Amount      *string `json:"amount,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

type transferRequest struct {
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	DestinationAccount string `json:"destination_account"`
}

func (a *HTTPAdapter) AuthorizeAndHold(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Authorization, error) {
	var auth Authorization
	err := a.post(ctx, "/v1/charges/authorize", authorizeRequest{
		Amount:   amount.StringFixed(2),
		Currency: currency,
		Metadata: metadata,
	}, &auth)
	if err != nil {
		metrics.RecordGatewayRequest("authorize", "error")
		return nil, err
	}

	metrics.RecordGatewayRequest("authorize", "success")
	return &auth, nil
}

func (a *HTTPAdapter) Capture(ctx context.Context, externalRef string) error {
	err := a.post(ctx, "/v1/charges/capture", captureRequest{ExternalRef: externalRef}, nil)
	if err != nil {
		metrics.RecordGatewayRequest("capture", "error")
		return err
	}

	metrics.RecordGatewayRequest("capture", "success")
	return nil
}

func (a *HTTPAdapter) Refund(ctx context.Context, externalRef string, amount *decimal.Decimal, reason string) error {
	req := refundRequest{ExternalRef: externalRef, Reason: reason}
	if amount != nil {
		s := amount.StringFixed(2)
		req.Amount = &s
	}

	if err := a.post(ctx, "/v1/charges/refund", req, nil); err != nil {
		metrics.RecordGatewayRequest("refund", "error")
		return err
	}

	metrics.RecordGatewayRequest("refund", "success")
	return nil
}

func (a *HTTPAdapter) Transfer(ctx context.Context, amount decimal.Decimal, currency, destinationAccount string) error {
	err := a.post(ctx, "/v1/transfers", transferRequest{
		Amount:             amount.StringFixed(2),
		Currency:           currency,
		DestinationAccount: destinationAccount,
	}, nil)
	if err != nil {
		metrics.RecordGatewayRequest("transfer", "error")
		return err
	}

	metrics.RecordGatewayRequest("transfer", "success")
	return nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature over the raw
// payload before decoding the event.
func (a *HTTPAdapter) VerifyWebhookSignature(payload []byte, signature string) (*Event, error) {
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrBadSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	return &event, nil
}

func (a *HTTPAdapter) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("gateway rejected %s (%d): %s", path, resp.StatusCode, apiErr.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	return nil
}
