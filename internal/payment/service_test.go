package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/balance"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/booking"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/gateway"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/tax"
)

// Mock repositories
type MockPaymentRepo struct{ mock.Mock }
type MockBookingRepo struct{ mock.Mock }
type MockGateway struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }

func (m *MockPaymentRepo) Create(ctx context.Context, p *Payment, data *InvoiceData) (*Payment, error) {
	args := m.Called(ctx, p, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetByID(ctx context.Context, id int64) (*Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetByExternalRef(ctx context.Context, externalRef string) (*Payment, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetByBookingID(ctx context.Context, bookingID int64) (*Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetInvoiceData(ctx context.Context, paymentID int64) (*InvoiceData, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InvoiceData), args.Error(1)
}

func (m *MockPaymentRepo) Transition(ctx context.Context, id int64, from []Status, to Status) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) TransitionByRef(ctx context.Context, externalRef string, from []Status, to Status) (bool, error) {
	args := m.Called(ctx, externalRef, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) MarkReleased(ctx context.Context, id int64, platformFee, professionalAmount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, id, platformFee, professionalAmount)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int64) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListReleasable(ctx context.Context, cutoff time.Time) ([]booking.Booking, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockGateway) AuthorizeAndHold(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*gateway.Authorization, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Authorization), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, externalRef string) error {
	return m.Called(ctx, externalRef).Error(0)
}

func (m *MockGateway) Refund(ctx context.Context, externalRef string, amount *decimal.Decimal, reason string) error {
	return m.Called(ctx, externalRef, amount, reason).Error(0)
}

func (m *MockGateway) Transfer(ctx context.Context, amount decimal.Decimal, currency, destinationAccount string) error {
	return m.Called(ctx, amount, currency, destinationAccount).Error(0)
}

func (m *MockGateway) VerifyWebhookSignature(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{}) error {
	return m.Called(ctx, userID, kind, payload).Error(0)
}

func testTaxConfig() tax.Config {
	return tax.Config{
		CommissionRate: decimal.RequireFromString("0.15"),
		DefaultRate:    decimal.RequireFromString("0.16"),
		Rates: map[string]decimal.Decimal{
			"MX": decimal.RequireFromString("0.16"),
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateIntent_Validation(t *testing.T) {
	svc := NewService(new(MockPaymentRepo), new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

	tests := []struct {
		name  string
		input CreateIntentInput
	}{
		{
			"Negative amount",
			CreateIntentInput{BookingID: int64Ptr(1), Amount: dec("-10"), Currency: "MXN", InvoiceKind: WithoutInvoice},
		},
		{
			"Zero amount",
			CreateIntentInput{BookingID: int64Ptr(1), Amount: decimal.Zero, Currency: "MXN", InvoiceKind: WithoutInvoice},
		},
		{
			"Both booking and order set",
			CreateIntentInput{BookingID: int64Ptr(1), OrderID: int64Ptr(2), Amount: dec("100"), Currency: "MXN", InvoiceKind: WithoutInvoice},
		},
		{
			"Neither booking nor order set",
			CreateIntentInput{Amount: dec("100"), Currency: "MXN", InvoiceKind: WithoutInvoice},
		},
		{
			"Missing currency",
			CreateIntentInput{BookingID: int64Ptr(1), Amount: dec("100"), InvoiceKind: WithoutInvoice},
		},
		{
			"Unknown invoice kind",
			CreateIntentInput{BookingID: int64Ptr(1), Amount: dec("100"), Currency: "MXN", InvoiceKind: "whatever"},
		},
		{
			"With invoice but no invoice data",
			CreateIntentInput{BookingID: int64Ptr(1), Amount: dec("100"), Currency: "MXN", InvoiceKind: WithInvoice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.CreateIntent(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, result)
		})
	}
}

func TestCreateIntent_WithInvoiceAddsTax(t *testing.T) {
	repo := new(MockPaymentRepo)
	gw := new(MockGateway)
	svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

	// 500.00 at 16% is charged as 580.00 tax-inclusive
	gw.On("AuthorizeAndHold", mock.Anything, dec("580"), "MXN", map[string]string{"booking_id": "5"}).
		Return(&gateway.Authorization{ExternalRef: "ext-1", ClientHandle: "handle-1"}, nil)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.Amount.Equal(dec("580")) &&
			p.TaxAmount.Equal(dec("80")) &&
			p.Status == StatusPending &&
			p.ExternalRef == "ext-1"
	}), mock.Anything).Return(&Payment{
		ID:          1,
		BookingID:   int64Ptr(5),
		Amount:      dec("580"),
		TaxAmount:   dec("80"),
		Status:      StatusPending,
		ExternalRef: "ext-1",
	}, nil)

	result, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		BookingID:   int64Ptr(5),
		Amount:      dec("500"),
		Currency:    "MXN",
		InvoiceKind: WithInvoice,
		InvoiceData: &InvoiceData{TaxID: "XAXX010101000", Jurisdiction: "MX"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.PaymentID)
	assert.Equal(t, "handle-1", result.ClientHandle)
	assert.True(t, result.Amount.Equal(dec("580")))
	assert.True(t, result.TaxAmount.Equal(dec("80")))
	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestCreateIntent_WithoutInvoiceNoTax(t *testing.T) {
	repo := new(MockPaymentRepo)
	gw := new(MockGateway)
	svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

	gw.On("AuthorizeAndHold", mock.Anything, dec("100"), "MXN", mock.Anything).
		Return(&gateway.Authorization{ExternalRef: "ext-2"}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.Amount.Equal(dec("100")) && p.TaxAmount.IsZero()
	}), (*InvoiceData)(nil)).Return(&Payment{ID: 2, Amount: dec("100")}, nil)

	_, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		OrderID:     int64Ptr(9),
		Amount:      dec("100"),
		Currency:    "MXN",
		InvoiceKind: WithoutInvoice,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateIntent_GatewayDownNothingPersisted(t *testing.T) {
	repo := new(MockPaymentRepo)
	gw := new(MockGateway)
	svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

	gw.On("AuthorizeAndHold", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, gateway.ErrUnavailable)

	result, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		BookingID:   int64Ptr(1),
		Amount:      dec("100"),
		Currency:    "MXN",
		InvoiceKind: WithoutInvoice,
	})

	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Nil(t, result)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCapture(t *testing.T) {
	t.Run("Captures pending payment", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gw := new(MockGateway)
		svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

		pending := &Payment{ID: 1, Status: StatusPending, ExternalRef: "ext-1"}
		repo.On("GetByExternalRef", mock.Anything, "ext-1").Return(pending, nil)
		gw.On("Capture", mock.Anything, "ext-1").Return(nil)
		repo.On("Transition", mock.Anything, int64(1), []Status{StatusPending, StatusAuthorized}, StatusCaptured).Return(true, nil)
		repo.On("GetByID", mock.Anything, int64(1)).Return(&Payment{ID: 1, Status: StatusCaptured}, nil)

		p, err := svc.Capture(context.Background(), "ext-1")

		require.NoError(t, err)
		assert.Equal(t, StatusCaptured, p.Status)
	})

	t.Run("Captures authorized payment after webhook", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gw := new(MockGateway)
		svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

		repo.On("GetByExternalRef", mock.Anything, "ext-1").Return(&Payment{ID: 1, Status: StatusAuthorized, ExternalRef: "ext-1"}, nil)
		gw.On("Capture", mock.Anything, "ext-1").Return(nil)
		repo.On("Transition", mock.Anything, int64(1), []Status{StatusPending, StatusAuthorized}, StatusCaptured).Return(true, nil)
		repo.On("GetByID", mock.Anything, int64(1)).Return(&Payment{ID: 1, Status: StatusCaptured}, nil)

		_, err := svc.Capture(context.Background(), "ext-1")
		assert.NoError(t, err)
	})

	t.Run("Rejects refunded payment", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := NewService(repo, new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

		repo.On("GetByExternalRef", mock.Anything, "ext-1").Return(&Payment{ID: 1, Status: StatusRefunded}, nil)

		_, err := svc.Capture(context.Background(), "ext-1")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("Gateway failure leaves state untouched", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gw := new(MockGateway)
		svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

		repo.On("GetByExternalRef", mock.Anything, "ext-1").Return(&Payment{ID: 1, Status: StatusPending, ExternalRef: "ext-1"}, nil)
		gw.On("Capture", mock.Anything, "ext-1").Return(gateway.ErrUnavailable)

		_, err := svc.Capture(context.Background(), "ext-1")

		assert.ErrorIs(t, err, gateway.ErrUnavailable)
		repo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

type creditCall struct {
	professionalID int64
	amount         decimal.Decimal
	currency       string
	reference      string
}

// balanceRepoStub records Credit calls; the other methods are never
// reached from the payment service.
type balanceRepoStub struct {
	credits   []creditCall
	creditErr error
}

func (s *balanceRepoStub) Credit(ctx context.Context, professionalID int64, amount decimal.Decimal, currency, reference string) error {
	s.credits = append(s.credits, creditCall{professionalID, amount, currency, reference})
	return s.creditErr
}

func (s *balanceRepoStub) GetOrCreate(context.Context, int64, string) (*balance.Balance, error) {
	panic("not reached")
}

func (s *balanceRepoStub) RequestPayout(context.Context, int64, decimal.Decimal, string) (*balance.Payout, error) {
	panic("not reached")
}

func (s *balanceRepoStub) GetPayout(context.Context, int64) (*balance.Payout, error) {
	panic("not reached")
}

func (s *balanceRepoStub) ListPayouts(context.Context, int64) ([]balance.Payout, error) {
	panic("not reached")
}

func (s *balanceRepoStub) MarkPayoutProcessing(context.Context, int64) (bool, error) {
	panic("not reached")
}

func (s *balanceRepoStub) CompletePayout(context.Context, int64) error {
	panic("not reached")
}

func (s *balanceRepoStub) ReturnPayout(context.Context, int64, balance.PayoutStatus) error {
	panic("not reached")
}

func (s *balanceRepoStub) ListEntries(context.Context, int64, int, int) ([]balance.Entry, error) {
	panic("not reached")
}

func completedBooking(id, professionalID int64) *booking.Booking {
	completedAt := time.Now().Add(-48 * time.Hour)
	return &booking.Booking{
		ID:             id,
		CustomerID:     100,
		ProfessionalID: professionalID,
		Status:         booking.StatusCompleted,
		CompletedAt:    &completedAt,
	}
}

func TestRelease(t *testing.T) {
	t.Run("Splits amount and credits professional", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		bookings := new(MockBookingRepo)
		balances := &balanceRepoStub{}
		notifier := new(MockNotifier)
		svc := NewService(repo, bookings, balances, new(MockGateway), notifier, testTaxConfig())

		bookings.On("GetByID", mock.Anything, int64(10)).Return(completedBooking(10, 77), nil)
		repo.On("GetByBookingID", mock.Anything, int64(10)).Return(&Payment{
			ID: 3, BookingID: int64Ptr(10), Amount: dec("1000"), Currency: "MXN", Status: StatusCaptured,
		}, nil)
		// 15% commission on 1000.00
		repo.On("MarkReleased", mock.Anything, int64(3), dec("150"), dec("850")).Return(true, nil)
		notifier.On("Notify", mock.Anything, int64(77), "funds_released", mock.Anything).Return(nil)

		result, err := svc.Release(context.Background(), 10)

		require.NoError(t, err)
		assert.True(t, result.PlatformFee.Equal(dec("150")))
		assert.True(t, result.ProfessionalAmount.Equal(dec("850")))
		assert.True(t, result.PlatformFee.Add(result.ProfessionalAmount).Equal(dec("1000")))

		require.Len(t, balances.credits, 1)
		assert.Equal(t, int64(77), balances.credits[0].professionalID)
		assert.True(t, balances.credits[0].amount.Equal(dec("850")))
		assert.Equal(t, "release:payment:3", balances.credits[0].reference)
	})

	t.Run("Booking not found", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := NewService(new(MockPaymentRepo), bookings, &balanceRepoStub{}, new(MockGateway), new(MockNotifier), testTaxConfig())

		bookings.On("GetByID", mock.Anything, int64(404)).Return(nil, booking.ErrNotFound)

		_, err := svc.Release(context.Background(), 404)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("Booking not completed", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		repo := new(MockPaymentRepo)
		svc := NewService(repo, bookings, &balanceRepoStub{}, new(MockGateway), new(MockNotifier), testTaxConfig())

		bookings.On("GetByID", mock.Anything, int64(10)).Return(&booking.Booking{ID: 10, Status: booking.StatusConfirmed}, nil)

		_, err := svc.Release(context.Background(), 10)

		assert.ErrorIs(t, err, ErrBookingNotCompleted)
		repo.AssertNotCalled(t, "GetByBookingID", mock.Anything, mock.Anything)
	})

	t.Run("Payment not captured", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		repo := new(MockPaymentRepo)
		svc := NewService(repo, bookings, &balanceRepoStub{}, new(MockGateway), new(MockNotifier), testTaxConfig())

		bookings.On("GetByID", mock.Anything, int64(10)).Return(completedBooking(10, 77), nil)
		repo.On("GetByBookingID", mock.Anything, int64(10)).Return(&Payment{ID: 3, Status: StatusPending}, nil)

		_, err := svc.Release(context.Background(), 10)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("Second concurrent release loses CAS", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		repo := new(MockPaymentRepo)
		balances := &balanceRepoStub{}
		svc := NewService(repo, bookings, balances, new(MockGateway), new(MockNotifier), testTaxConfig())

		bookings.On("GetByID", mock.Anything, int64(10)).Return(completedBooking(10, 77), nil)
		repo.On("GetByBookingID", mock.Anything, int64(10)).Return(&Payment{
			ID: 3, BookingID: int64Ptr(10), Amount: dec("1000"), Currency: "MXN", Status: StatusCaptured,
		}, nil)
		repo.On("MarkReleased", mock.Anything, int64(3), mock.Anything, mock.Anything).Return(false, nil)

		_, err := svc.Release(context.Background(), 10)

		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, balances.credits)
	})

	t.Run("Notification failure does not fail release", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		repo := new(MockPaymentRepo)
		notifier := new(MockNotifier)
		svc := NewService(repo, bookings, &balanceRepoStub{}, new(MockGateway), notifier, testTaxConfig())

		bookings.On("GetByID", mock.Anything, int64(10)).Return(completedBooking(10, 77), nil)
		repo.On("GetByBookingID", mock.Anything, int64(10)).Return(&Payment{
			ID: 3, BookingID: int64Ptr(10), Amount: dec("1000"), Currency: "MXN", Status: StatusCaptured,
		}, nil)
		repo.On("MarkReleased", mock.Anything, int64(3), mock.Anything, mock.Anything).Return(true, nil)
		notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		result, err := svc.Release(context.Background(), 10)

		assert.NoError(t, err)
		assert.NotNil(t, result)
	})
}

func TestRefund(t *testing.T) {
	t.Run("Refunds captured payment", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gw := new(MockGateway)
		svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

		repo.On("GetByID", mock.Anything, int64(1)).Return(&Payment{ID: 1, Amount: dec("580"), Status: StatusCaptured, ExternalRef: "ext-1"}, nil).Once()
		gw.On("Refund", mock.Anything, "ext-1", (*decimal.Decimal)(nil), "customer request").Return(nil)
		repo.On("Transition", mock.Anything, int64(1), []Status{StatusCaptured}, StatusRefunded).Return(true, nil)
		repo.On("GetByID", mock.Anything, int64(1)).Return(&Payment{ID: 1, Status: StatusRefunded}, nil)

		p, err := svc.Refund(context.Background(), 1, nil, "customer request")

		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, p.Status)
	})

	t.Run("Rejects refund after release", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		gw := new(MockGateway)
		svc := NewService(repo, new(MockBookingRepo), nil, gw, new(MockNotifier), testTaxConfig())

		repo.On("GetByID", mock.Anything, int64(1)).Return(&Payment{ID: 1, Status: StatusReleased}, nil)

		_, err := svc.Refund(context.Background(), 1, nil, "")

		assert.ErrorIs(t, err, ErrInvalidState)
		gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Rejects amount above total", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := NewService(repo, new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

		repo.On("GetByID", mock.Anything, int64(1)).Return(&Payment{ID: 1, Amount: dec("100"), Status: StatusCaptured}, nil)

		amount := dec("200")
		_, err := svc.Refund(context.Background(), 1, &amount, "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestOnGatewayEvent(t *testing.T) {
	t.Run("Succeeded authorizes pending payment", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := NewService(repo, new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

		repo.On("TransitionByRef", mock.Anything, "ext-1", []Status{StatusPending}, StatusAuthorized).Return(true, nil)

		err := svc.OnGatewayEvent(context.Background(), gateway.Event{Kind: gateway.EventSucceeded, ExternalRef: "ext-1"})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Redelivered event is a no-op", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := NewService(repo, new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

		repo.On("TransitionByRef", mock.Anything, "ext-1", mock.Anything, mock.Anything).Return(false, nil)

		err := svc.OnGatewayEvent(context.Background(), gateway.Event{Kind: gateway.EventSucceeded, ExternalRef: "ext-1"})
		assert.NoError(t, err)
	})

	t.Run("Failed event moves pending or authorized to failed", func(t *testing.T) {
		repo := new(MockPaymentRepo)
		svc := NewService(repo, new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

		repo.On("TransitionByRef", mock.Anything, "ext-1", []Status{StatusPending, StatusAuthorized}, StatusFailed).Return(true, nil)

		err := svc.OnGatewayEvent(context.Background(), gateway.Event{Kind: gateway.EventFailed, ExternalRef: "ext-1"})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Unknown event kind rejected", func(t *testing.T) {
		svc := NewService(new(MockPaymentRepo), new(MockBookingRepo), nil, new(MockGateway), new(MockNotifier), testTaxConfig())

		err := svc.OnGatewayEvent(context.Background(), gateway.Event{Kind: "mystery", ExternalRef: "ext-1"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}
