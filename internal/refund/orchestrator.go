package refund

import (
	"context"
	"fmt"
	"strings"

	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/refund/gateway"
	"travyy/internal/utils"
)

// Orchestrator picks the gateway for a booking and normalizes whatever
// happens into a RefundOutcome. It never returns an error.
type Orchestrator struct {
	registry *gateway.Registry
	testMode bool
	logger   *logger.Logger
}

func NewOrchestrator(registry *gateway.Registry, testMode bool, log *logger.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, testMode: testMode, logger: log}
}

func (o *Orchestrator) TestMode() bool { return o.testMode }

func manualOutcome(provider string, err error) *models.RefundOutcome {
	return &models.RefundOutcome{
		Success:                  false,
		Provider:                 provider,
		Error:                    err.Error(),
		RequiresManualProcessing: true,
	}
}

func (o *Orchestrator) ProcessRefund(ctx context.Context, b *models.Booking, amount float64, note string) (out *models.RefundOutcome) {
	provider := strings.ToLower(strings.TrimSpace(b.Payment.Provider))

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("REFUND", fmt.Sprintf("Gateway %q panicked for booking %s: %v", provider, b.ID, r))
			out = manualOutcome(provider, fmt.Errorf("refund gateway panic: %v", r))
		}
	}()

	if o.testMode {
		o.logger.LogRefund("SIMULATE", b.ID, fmt.Sprintf("test mode, %s refund of %.0f VND not sent", provider, amount))
		return &models.RefundOutcome{
			Success:       true,
			Provider:      provider,
			TransactionID: utils.GenerateSimulatedRefundID(),
			Amount:        amount,
			Currency:      "VND",
			IsSimulated:   true,
			Message:       "Simulated refund",
		}
	}

	adapter := o.registry.Resolve(provider)
	out, err := adapter.Refund(ctx, gateway.Request{Booking: b, Amount: amount, Note: note})
	if err != nil {
		o.logger.Warn("REFUND", fmt.Sprintf("%s refund for booking %s needs manual processing: %v", adapter.Provider(), b.ID, err))
		return manualOutcome(provider, err)
	}
	if out == nil {
		return manualOutcome(provider, fmt.Errorf("%s returned no result", adapter.Provider()))
	}
	if out.Provider == "" {
		out.Provider = provider
	}
	o.logger.LogRefund("GATEWAY", b.ID, fmt.Sprintf("%s success=%t manual=%t", out.Provider, out.Success, out.RequiresManualProcessing))
	return out
}
