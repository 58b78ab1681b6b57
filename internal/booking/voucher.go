package booking

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"travyy/internal/models"

	"github.com/skip2/go-qrcode"
)

// VoucherPayload is what a guide's scanner recovers from the QR code.
type VoucherPayload struct {
	BookingID string    `json:"bookingId"`
	TourID    string    `json:"tourId"`
	UserID    string    `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// VoucherGenerator renders booking vouchers as QR PNGs holding an AES-GCM
// sealed VoucherPayload.
type VoucherGenerator struct {
	aead cipher.AEAD
	size int
}

func NewVoucherGenerator(secret string, size int) (*VoucherGenerator, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	return &VoucherGenerator{aead: aead, size: size}, nil
}

func (v *VoucherGenerator) Seal(b *models.Booking, now time.Time) (string, error) {
	data, err := json.Marshal(VoucherPayload{
		BookingID: b.ID,
		TourID:    b.TourID,
		UserID:    b.UserID,
		IssuedAt:  now.UTC(),
	})
	if err != nil {
		return "", err
	}
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (v *VoucherGenerator) Open(token string) (*VoucherPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < v.aead.NonceSize() {
		return nil, ErrVoucher
	}
	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	data, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrVoucher
	}
	var p VoucherPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVoucher, err)
	}
	return &p, nil
}

// PNG renders the sealed voucher for b.
func (v *VoucherGenerator) PNG(b *models.Booking, now time.Time) ([]byte, error) {
	token, err := v.Seal(b, now)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, v.size)
}
