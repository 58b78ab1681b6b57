package refund_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"travyy/internal/config"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/refund"
	"travyy/internal/refund/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAdapter struct {
	mock.Mock
	name string
}

func (m *MockAdapter) Provider() string { return m.name }

func (m *MockAdapter) Refund(ctx context.Context, req gateway.Request) (*models.RefundOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefundOutcome), args.Error(1)
}

type panicAdapter struct{}

func (panicAdapter) Provider() string { return "vnpay" }
func (panicAdapter) Refund(context.Context, gateway.Request) (*models.RefundOutcome, error) {
	panic("nil map")
}

func paidBooking(provider, orderID, txID string) *models.Booking {
	return &models.Booking{
		ID:          "bk-1",
		UserID:      "user-1",
		TotalAmount: 1000000,
		Status:      models.BookingConfirmed,
		Payment:     models.PaymentInfo{Provider: provider, OrderID: orderID, TransactionID: txID},
	}
}

func TestOrchestrator_TestModeSkipsGateway(t *testing.T) {
	adapter := &MockAdapter{name: "momo"}
	log := logger.NewDiscardLogger()
	o := refund.NewOrchestrator(gateway.NewRegistry(gateway.NewManual(log), adapter), true, log)

	out := o.ProcessRefund(context.Background(), paidBooking("MoMo", "O1", "1"), 500000, "")
	assert.True(t, out.Success)
	assert.True(t, out.IsSimulated)
	assert.Regexp(t, `^SIM_REFUND_\d+_\d{6}$`, out.TransactionID)
	adapter.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestOrchestrator_MoMoMissingTransactionNeverCallsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	log := logger.NewDiscardLogger()
	momo := gateway.NewMoMo(config.MoMoConfig{Endpoint: srv.URL, Timeout: time.Second}, log)
	o := refund.NewOrchestrator(gateway.NewRegistry(gateway.NewManual(log), momo), false, log)

	out := o.ProcessRefund(context.Background(), paidBooking("momo", "O1", ""), 500000, "")
	assert.False(t, out.Success)
	assert.True(t, out.RequiresManualProcessing)
	assert.Contains(t, out.Error, "transId")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestOrchestrator_UnknownProviderIsManual(t *testing.T) {
	log := logger.NewDiscardLogger()
	o := refund.NewOrchestrator(gateway.NewRegistry(gateway.NewManual(log)), false, log)

	out := o.ProcessRefund(context.Background(), paidBooking("cash", "", ""), 500000, "")
	assert.True(t, out.Success)
	assert.True(t, out.RequiresManualProcessing)
	assert.Equal(t, "cash", out.Provider)
}

func TestOrchestrator_DispatchesByProvider(t *testing.T) {
	log := logger.NewDiscardLogger()
	adapter := &MockAdapter{name: "paypal"}
	adapter.On("Refund", mock.Anything, mock.MatchedBy(func(r gateway.Request) bool {
		return r.Amount == 250000 && r.Note == "late cancel"
	})).Return(&models.RefundOutcome{Success: true, TransactionID: "RF-1"}, nil)

	o := refund.NewOrchestrator(gateway.NewRegistry(gateway.NewManual(log), adapter), false, log)
	out := o.ProcessRefund(context.Background(), paidBooking("PayPal", "", "CAP"), 250000, "late cancel")

	require.True(t, out.Success)
	assert.Equal(t, "paypal", out.Provider)
	assert.Equal(t, "RF-1", out.TransactionID)
	adapter.AssertExpectations(t)
}

func TestOrchestrator_RecoversFromPanic(t *testing.T) {
	log := logger.NewDiscardLogger()
	o := refund.NewOrchestrator(gateway.NewRegistry(gateway.NewManual(log), panicAdapter{}), false, log)

	var out *models.RefundOutcome
	require.NotPanics(t, func() {
		out = o.ProcessRefund(context.Background(), paidBooking("vnpay", "", ""), 1000, "")
	})
	assert.False(t, out.Success)
	assert.True(t, out.RequiresManualProcessing)
	assert.Contains(t, out.Error, "nil map")
}
