package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertVNDToUSD(t *testing.T) {
	assert.Equal(t, "39.00", ConvertVNDToUSD(1000000, 0.000039).StringFixed(2))
	assert.Equal(t, "0.98", ConvertVNDToUSD(25000, 0.000039).StringFixed(2))
}

func TestRoundVND(t *testing.T) {
	assert.Equal(t, int64(100001), RoundVND(100000.5))
	assert.Equal(t, int64(99999), RoundVND(99999.4))
}

func TestFormatVND_GroupsThousands(t *testing.T) {
	formatted := FormatVND(500000)
	assert.Regexp(t, regexp.MustCompile(`^500\D000$`), formatted)
}

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
}

func TestGenerateManualPaymentRef(t *testing.T) {
	assert.Regexp(t, `^MRF-\d{6}-[0-9A-F]{8}$`, GenerateManualPaymentRef())
}

func TestParsePaging(t *testing.T) {
	page, limit := ParsePaging("", "", 20, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = ParsePaging("3", "500", 20, 100)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
}

func TestNewPageMeta(t *testing.T) {
	meta := NewPageMeta(1, 20, 41)
	assert.Equal(t, 3, meta.TotalPages)
}
