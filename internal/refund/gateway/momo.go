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
	"strconv"
	"strings"
	"time"

	"travyy/internal/config"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/google/uuid"
)

type momoRefundRequest struct {
	PartnerCode string `json:"partnerCode"`
	OrderID     string `json:"orderId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	TransID     int64  `json:"transId"`
	Lang        string `json:"lang"`
	Description string `json:"description"`
	Signature   string `json:"signature"`
}

type momoRefundResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	TransID      int64  `json:"transId"`
	ResultCode   *int   `json:"resultCode"`
	Message      string `json:"message"`
	ResponseTime int64  `json:"responseTime"`
}

// MoMo calls the MoMo v2 refund API with an HMAC-SHA256 signed request.
type MoMo struct {
	cfg    config.MoMoConfig
	client *http.Client
	logger *logger.Logger
	now    func() time.Time
}

func NewMoMo(cfg config.MoMoConfig, log *logger.Logger) *MoMo {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.Lang == "" {
		cfg.Lang = "vi"
	}
	return &MoMo{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: log,
		now:    time.Now,
	}
}

func (m *MoMo) Provider() string { return ProviderMoMo }

// Sign builds the refund signature. Field order is fixed by MoMo.
func (m *MoMo) Sign(amount int64, description, orderID, requestID string, transID int64) string {
	raw := fmt.Sprintf("accessKey=%s&amount=%d&description=%s&orderId=%s&partnerCode=%s&requestId=%s&transId=%d",
		m.cfg.AccessKey, amount, description, orderID, m.cfg.PartnerCode, requestID, transID)
	mac := hmac.New(sha256.New, []byte(m.cfg.SecretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *MoMo) Refund(ctx context.Context, req Request) (*models.RefundOutcome, error) {
	payment := req.Booking.Payment
	if payment.OrderID == "" {
		return nil, fmt.Errorf("%w: momo orderId", ErrMissingPaymentData)
	}
	if payment.TransactionID == "" {
		return nil, fmt.Errorf("%w: momo transId", ErrMissingPaymentData)
	}
	transID, err := strconv.ParseInt(strings.TrimSpace(payment.TransactionID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: momo transId %q is not numeric", ErrMissingPaymentData, payment.TransactionID)
	}

	amount := utils.RoundVND(req.Amount)
	description := req.Note
	if description == "" {
		description = "Hoan tien don hang " + req.Booking.ID
	}
	body := momoRefundRequest{
		PartnerCode: m.cfg.PartnerCode,
		OrderID:     fmt.Sprintf("%s_RF_%d", payment.OrderID, m.now().UnixMilli()),
		RequestID:   uuid.NewString(),
		Amount:      amount,
		TransID:     transID,
		Lang:        m.cfg.Lang,
		Description: description,
	}
	body.Signature = m.Sign(body.Amount, body.Description, body.OrderID, body.RequestID, body.TransID)

	payload, err := json.Marshal(body)
	if err != nil {
		return failed(ProviderMoMo, err), nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.cfg.Endpoint, "/")+"/refund", bytes.NewReader(payload))
	if err != nil {
		return failed(ProviderMoMo, err), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Info("MOMO", fmt.Sprintf("Refund request %s for order %s, amount %d", body.RequestID, payment.OrderID, amount))
	resp, err := m.client.Do(httpReq)
	if err != nil {
		m.logger.Error("MOMO", fmt.Sprintf("Refund request failed: %v", err))
		return failed(ProviderMoMo, fmt.Errorf("momo request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	var result momoRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		m.logger.Error("MOMO", fmt.Sprintf("Unreadable refund response (HTTP %d): %v", resp.StatusCode, err))
		return failed(ProviderMoMo, fmt.Errorf("momo response: %w", err)), nil
	}

	if result.ResultCode == nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := result.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		m.logger.Error("MOMO", fmt.Sprintf("Refund failed with HTTP %d: %s", resp.StatusCode, msg))
		out := failed(ProviderMoMo, fmt.Errorf("momo refund HTTP %d: %s", resp.StatusCode, msg))
		if result.ResultCode != nil {
			out.ResultCode = *result.ResultCode
		}
		return out, nil
	}
	if *result.ResultCode != 0 {
		m.logger.Warn("MOMO", fmt.Sprintf("Refund rejected, resultCode=%d: %s", *result.ResultCode, result.Message))
		return &models.RefundOutcome{
			Success:    false,
			Provider:   ProviderMoMo,
			ResultCode: *result.ResultCode,
			Error:      result.Message,
		}, nil
	}

	m.logger.Info("MOMO", fmt.Sprintf("Refund %d completed for order %s", result.TransID, payment.OrderID))
	return &models.RefundOutcome{
		Success:       true,
		Provider:      ProviderMoMo,
		TransactionID: strconv.FormatInt(result.TransID, 10),
		Amount:        float64(amount),
		Currency:      "VND",
		ResultCode:    0,
		Message:       result.Message,
	}, nil
}
