package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"whole", "100", "100"},
		{"two places", "100.50", "100.5"},
		{"cents only", "0.99", "0.99"},
		{"zero with decimals", "0.00", "0"},
		{"four places", "12.3456", "12.3456"},
		{"with whitespace", "  50.25  ", "50.25"},
		{"large", "99999999999999.99", "99999999999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := numericToDecimal(tt.input)
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.expected)), "got %s", d)
		})
	}
}

func TestNumericToDecimal_Errors(t *testing.T) {
	for _, input := range []string{"", "abc", "$100.00", "10.5.5"} {
		_, err := numericToDecimal(input)
		assert.Error(t, err, input)
	}
}

func TestDecimalToNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"100", "100"},
		{"100.50", "100.5"},
		{"0.01", "0.01"},
		{"0.1", "0.1"},
		{"1234567890.12", "1234567890.12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, decimalToNumeric(decimal.RequireFromString(tt.input)))
	}
}

func TestMoneyConversion_NoPrecisionLoss(t *testing.T) {
	// 0.1 + 0.2 is the classic float trap.
	sum := decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))
	back, err := numericToDecimal(decimalToNumeric(sum))
	require.NoError(t, err)
	assert.True(t, back.Equal(decimal.RequireFromString("0.3")))
}
