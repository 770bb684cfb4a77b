package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-15", date(2024, 3, 15)},
		{"15/03/2024", date(2024, 3, 15)},
		{"5/3/2024", date(2024, 3, 5)},
		{"15/03/24", date(2024, 3, 15)},
		{"15-03-2024", date(2024, 3, 15)},
		{"15.03.2024", date(2024, 3, 15)},
		{"2024/03/15", date(2024, 3, 15)},
		{"2024-03-15 10:30:00", date(2024, 3, 15)},
		{"15/03/2024 08:00", date(2024, 3, 15)},
		{"45366", date(2024, 3, 15)},
		{"03/2024", date(2024, 3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFlexibleDate(tt.in)
			require.True(t, ok)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseFlexibleDate_EmptyAndInvalid(t *testing.T) {
	got, ok := ParseFlexibleDate("   ")
	assert.True(t, ok)
	assert.Nil(t, got)

	got, ok = ParseFlexibleDate("ontem")
	assert.False(t, ok)
	assert.Nil(t, got)

	// число вне диапазона серийных дат
	got, ok = ParseFlexibleDate("12")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)
	c := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(&a, &b))
	assert.False(t, SameDay(&a, &c))
	assert.False(t, SameDay(&a, nil))
	assert.True(t, SameDay(nil, nil))
}
