package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"travyy/internal/config"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const DefaultFXVNDUSD = 0.000039

type paypalMoney struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type paypalRefundRequest struct {
	Amount      paypalMoney `json:"amount"`
	NoteToPayer string      `json:"note_to_payer,omitempty"`
}

type paypalRefundResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (r paypalRefundResponse) errorMessage() string {
	if len(r.Details) > 0 && r.Details[0].Description != "" {
		return r.Details[0].Description
	}
	if r.Message != "" {
		return r.Message
	}
	return "paypal refund status " + r.Status
}

// PayPal refunds a captured payment. Amounts are converted from VND at a
// fixed rate because PayPal does not settle in VND.
type PayPal struct {
	baseURL  string
	currency string
	rate     float64
	client   *http.Client
	oauth    *clientcredentials.Config
	logger   *logger.Logger

	mu     sync.Mutex
	cached *oauth2.Token
}

func NewPayPal(cfg config.PayPalConfig, fxVNDUSD float64, log *logger.Logger) *PayPal {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if fxVNDUSD <= 0 {
		fxVNDUSD = DefaultFXVNDUSD
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	client := &http.Client{Timeout: timeout}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &PayPal{
		baseURL:  base,
		currency: currency,
		rate:     fxVNDUSD,
		client:   client,
		oauth:    cc,
		logger:   log,
	}
}

// token reuses the cached access token until it expires. A fresh one is
// fetched with the caller's context.
func (p *PayPal) token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	src := oauth2.ReuseTokenSource(p.cached, p.oauth.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, p.client)))
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	p.cached = tok
	return tok, nil
}

func (p *PayPal) Provider() string { return ProviderPayPal }

func captureID(payment models.PaymentInfo) string {
	if payment.TransactionID != "" {
		return payment.TransactionID
	}
	if id := payment.DataString("captureId"); id != "" {
		return id
	}
	return payment.DataString("id")
}

func (p *PayPal) Refund(ctx context.Context, req Request) (*models.RefundOutcome, error) {
	capture := captureID(req.Booking.Payment)
	if capture == "" {
		return nil, fmt.Errorf("%w: paypal capture id", ErrMissingPaymentData)
	}
	usd := utils.ConvertVNDToUSD(req.Amount, p.rate)
	if !usd.IsPositive() {
		return nil, fmt.Errorf("%w: amount %.0f VND converts to %s %s", ErrMissingPaymentData, req.Amount, usd.StringFixed(2), p.currency)
	}

	token, err := p.token(ctx)
	if err != nil {
		p.logger.Error("PAYPAL", fmt.Sprintf("OAuth token request failed: %v", err))
		return failed(ProviderPayPal, fmt.Errorf("paypal auth failed: %w", err)), nil
	}

	body, err := json.Marshal(paypalRefundRequest{
		Amount:      paypalMoney{Value: usd.StringFixed(2), CurrencyCode: p.currency},
		NoteToPayer: req.Note,
	})
	if err != nil {
		return failed(ProviderPayPal, err), nil
	}
	endpoint := fmt.Sprintf("%s/v2/payments/captures/%s/refund", p.baseURL, url.PathEscape(capture))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(ProviderPayPal, err), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(httpReq)

	p.logger.Info("PAYPAL", fmt.Sprintf("Refund capture %s for %s %s", capture, usd.StringFixed(2), p.currency))
	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("PAYPAL", fmt.Sprintf("Refund request failed: %v", err))
		return failed(ProviderPayPal, fmt.Errorf("paypal request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	var result paypalRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failed(ProviderPayPal, fmt.Errorf("paypal response (HTTP %d): %w", resp.StatusCode, err)), nil
	}

	amount, _ := usd.Float64()
	if result.Status != "COMPLETED" {
		p.logger.Warn("PAYPAL", fmt.Sprintf("Refund of capture %s not completed (HTTP %d): %s", capture, resp.StatusCode, result.errorMessage()))
		return &models.RefundOutcome{
			Success:       false,
			Provider:      ProviderPayPal,
			TransactionID: result.ID,
			Status:        result.Status,
			Error:         result.errorMessage(),
		}, nil
	}

	return &models.RefundOutcome{
		Success:       true,
		Provider:      ProviderPayPal,
		TransactionID: result.ID,
		Amount:        amount,
		Currency:      p.currency,
		Status:        result.Status,
	}, nil
}
