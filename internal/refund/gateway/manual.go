package gateway

import (
	"context"
	"fmt"

	"travyy/internal/logger"
	"travyy/internal/models"
)

// Manual handles providers with no refund API. The refund is accepted and
// flagged for an admin to pay out by hand.
type Manual struct {
	logger *logger.Logger
}

func NewManual(log *logger.Logger) *Manual {
	return &Manual{logger: log}
}

func (m *Manual) Provider() string { return ProviderManual }

func (m *Manual) Refund(_ context.Context, req Request) (*models.RefundOutcome, error) {
	provider := req.Booking.Payment.Provider
	if provider == "" {
		provider = ProviderManual
	}
	m.logger.Info("REFUND", fmt.Sprintf("Booking %s paid via %q needs manual refund of %.0f VND", req.Booking.ID, provider, req.Amount))
	return &models.RefundOutcome{
		Success:                  true,
		Provider:                 provider,
		Amount:                   req.Amount,
		Currency:                 "VND",
		RequiresManualProcessing: true,
		Message:                  "Refund requires manual processing",
	}, nil
}
