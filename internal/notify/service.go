package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/logger"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/metrics"
)

// Event kinds emitted by the settlement core.
const (
	KindPaymentCaptured = "payment_captured"
	KindFundsReleased   = "funds_released"
	KindPaymentRefunded = "payment_refunded"
	KindInvoiceIssued   = "invoice_issued"
	KindReceiptIssued   = "receipt_issued"
	KindPayoutCompleted = "payout_completed"
	KindPayoutFailed    = "payout_failed"
	KindTest            = "test"
)

const queueKey = "notifications"

// Sender is the fire-and-forget notification capability. Financial
// operations treat every error from it as non-fatal.
type Sender interface {
	Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{}) error
}

type Job struct {
	ID      string                 `json:"id"`
	UserID  int64                  `json:"user_id"`
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
	Tries   int                    `json:"tries"`
	Created time.Time              `json:"created"`
}

// Service queues notification jobs on a redis list and drains them in a
// background goroutine, delivering by email.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{}) error {
	job := Job{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue notification %s for user %d: %v", kind, userID, err)
		return err
	}

	logger.Infof("Notification queued: %s for user %d", kind, userID)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.NotificationQueueLength.Set(float64(s.QueueLength(ctx)))

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.deliver(ctx, job); err != nil {
		logger.Errorf("Failed to deliver %s to user %d: %v", job.Kind, job.UserID, err)
		metrics.RecordNotification(job.Kind, "failed")

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Kind, "success")
}

func (s *Service) deliver(ctx context.Context, job Job) error {
	to, err := s.recipientAddress(ctx, job.UserID)
	if err != nil {
		return err
	}

	subject, body := renderEmail(job)

	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "\r\n" + body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
}

// recipientAddress resolves a user id to an email. User records live in
// the identity service; its notification relay accepts the user id as a
// subaddress.
func (s *Service) recipientAddress(_ context.Context, userID int64) (string, error) {
	return fmt.Sprintf("user-%d@%s", userID, s.relayDomain()), nil
}

func (s *Service) relayDomain() string {
	if s.smtpHost == "" || s.smtpHost == "localhost" {
		return "marketplace.local"
	}
	return s.smtpHost
}

func renderEmail(job Job) (subject, body string) {
	switch job.Kind {
	case KindFundsReleased:
		subject = "Funds released"
	case KindInvoiceIssued:
		subject = "Your invoice is ready"
	case KindReceiptIssued:
		subject = "Your receipt is ready"
	case KindPayoutCompleted:
		subject = "Payout completed"
	case KindPayoutFailed:
		subject = "Payout failed"
	case KindPaymentRefunded:
		subject = "Payment refunded"
	default:
		subject = job.Kind
	}

	data, _ := json.MarshalIndent(job.Payload, "", "  ")
	return subject, string(data)
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), queueKey+":failed", data)
	logger.Errorf("Notification moved to failed queue: %s for user %d", job.Kind, job.UserID)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
