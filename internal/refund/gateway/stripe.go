package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// Stripe refunds a payment intent. VND is a zero-decimal currency in Stripe,
// so the amount is sent as whole dong.
type Stripe struct {
	client *client.API
	log    *logger.Logger
}

func NewStripe(secretKey string, log *logger.Logger) (*Stripe, error) {
	return NewStripeWithBackends(secretKey, nil, log)
}

// NewStripeWithBackends lets callers point the client at another API host.
func NewStripeWithBackends(secretKey string, backends *stripe.Backends, log *logger.Logger) (*Stripe, error) {
	if secretKey == "" {
		return nil, ErrStripeClientInitFailed
	}
	sc := client.New(secretKey, backends)
	if sc == nil {
		return nil, ErrStripeClientInitFailed
	}
	return &Stripe{client: sc, log: log}, nil
}

func (s *Stripe) Provider() string { return ProviderStripe }

func paymentIntentID(payment models.PaymentInfo) string {
	if strings.HasPrefix(payment.TransactionID, "pi_") {
		return payment.TransactionID
	}
	if id := payment.DataString("payment_intent"); id != "" {
		return id
	}
	return payment.TransactionID
}

func (s *Stripe) Refund(ctx context.Context, req Request) (*models.RefundOutcome, error) {
	intent := paymentIntentID(req.Booking.Payment)
	if intent == "" {
		return nil, fmt.Errorf("%w: stripe payment intent", ErrMissingPaymentData)
	}
	amount := utils.RoundVND(req.Amount)

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intent),
		Amount:        stripe.Int64(amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", req.Booking.ID)
	if req.Note != "" {
		params.AddMetadata("note", req.Note)
	}

	s.log.Info("STRIPE", fmt.Sprintf("Refunding %d VND on payment intent %s", amount, intent))
	refund, err := s.client.Refunds.New(params)
	if err != nil {
		msg := err.Error()
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			msg = stripeErr.Msg
		}
		s.log.Error("STRIPE", fmt.Sprintf("Refund failed for %s: %s", intent, msg))
		return &models.RefundOutcome{Success: false, Provider: ProviderStripe, Error: msg}, nil
	}

	switch refund.Status {
	case stripe.RefundStatusSucceeded, stripe.RefundStatusPending:
		s.log.Info("STRIPE", fmt.Sprintf("Refund %s is %s", refund.ID, refund.Status))
		return &models.RefundOutcome{
			Success:       true,
			Provider:      ProviderStripe,
			TransactionID: refund.ID,
			Amount:        float64(refund.Amount),
			Currency:      strings.ToUpper(string(refund.Currency)),
			Status:        string(refund.Status),
		}, nil
	default:
		s.log.Warn("STRIPE", fmt.Sprintf("Refund %s ended as %s", refund.ID, refund.Status))
		return &models.RefundOutcome{
			Success:       false,
			Provider:      ProviderStripe,
			TransactionID: refund.ID,
			Status:        string(refund.Status),
			Error:         "stripe refund " + string(refund.Status),
		}, nil
	}
}
