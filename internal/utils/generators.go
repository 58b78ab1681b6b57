package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateID() string {
	return uuid.NewString()
}

// GenerateSimulatedRefundID marks refunds that never reached a gateway.
func GenerateSimulatedRefundID() string {
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("SIM_REFUND_%d_%06d", time.Now().UnixMilli(), randomNum.Int64())
}

// GenerateManualPaymentRef is the reference admins quote on bank transfers.
func GenerateManualPaymentRef() string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("MRF-%s-%s", time.Now().Format("060102"), short)
}

// GenerateOTP returns a zero-padded numeric code of the given length.
func GenerateOTP(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
