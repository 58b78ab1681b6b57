package utils

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vnPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount with Vietnamese digit grouping, e.g. 500.000.
func FormatVND(amount float64) string {
	return vnPrinter.Sprintf("%d", decimal.NewFromFloat(amount).Round(0).IntPart())
}

// ConvertVNDToUSD applies rate and rounds to cents.
func ConvertVNDToUSD(amountVND, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(amountVND).Mul(decimal.NewFromFloat(rate)).Round(2)
}

// RoundVND rounds to whole dong, the smallest unit gateways accept.
func RoundVND(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(0).IntPart()
}
