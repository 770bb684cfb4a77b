package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"R$ 1.234,56":   "1234.56",
		"1,234.56":      "1234.56",
		"1234.5":        "1234.5",
		"-10,00":        "-10",
		"1.234.567":     "1234567",
		"(15,50)":       "-15.5",
		"":              "0",
		"42":            "42",
		"R$ 1.500":      "1500",
		"R$ 12.345.678": "12345678",
		"R$ 1.5":        "1.5",
		"1.500":         "1.5",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := ParseAmount(in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(want).Equal(got), "got %s", got)
		})
	}

	_, err := ParseAmount("doze reais")
	assert.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), q)

	q, err = ParseQuantity("7.0")
	require.NoError(t, err)
	assert.Equal(t, int64(7), q)

	q, err = ParseQuantity(" ")
	require.NoError(t, err)
	assert.Equal(t, int64(0), q)

	_, err = ParseQuantity("2,5")
	assert.Error(t, err)

	for in, want := range map[string]int64{"1.000": 1000, "12.500": 12500, "1,000": 1000, "2.345.000": 2345000} {
		q, err = ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, q, in)
	}
}
