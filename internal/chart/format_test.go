package chart

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/coinchart/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestTickLabel(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{999, "999"},
		{12.5, "12.5"},
		{0, "0"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{2_500_000, "2.5M"},
		{3_200_000_000, "3.2B"},
		{-5000, "-5000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TickLabel(tt.value))
		})
	}
}

func TestMaxTicks(t *testing.T) {
	assert.Equal(t, 8, MaxTicks(1))
	assert.Equal(t, 8, MaxTicks(7))
	assert.Equal(t, 12, MaxTicks(30))
	assert.Equal(t, 12, MaxTicks(365))
}

func TestFormatter_Label(t *testing.T) {
	f := NewFormatter(DisplayZone(9))

	// 2023-11-14 22:13:20 UTC
	assert.Equal(t, "Nov 15", f.Label(1700000000000, 30))
	assert.Equal(t, "Nov 15 07:13", f.Label(1700000000000, 7))

	utc := NewFormatter(nil)
	assert.Equal(t, "Nov 14", utc.Label(1700000000000, 90))
}

func TestFormatter_Labels_PreservesOrder(t *testing.T) {
	f := NewFormatter(time.UTC)
	points := []core.PricePoint{
		{Timestamp: 1700086400000, Value: 2},
		{Timestamp: 1700000000000, Value: 1},
	}

	assert.Equal(t, []string{"Nov 15", "Nov 14"}, f.Labels(points, 30))
	assert.Equal(t, []float64{2, 1}, Values(points))
}

func TestFormatter_Tooltip(t *testing.T) {
	f := NewFormatter(nil)

	assert.Equal(t, "50,000.12 USD", f.Tooltip(50000.12, "USD"))
	assert.Equal(t, "0.50 KRW", f.Tooltip(0.5, "KRW"))
	assert.Equal(t, "1,234,567.00", f.Tooltip(1234567, ""))
	assert.Equal(t, "", f.Tooltip(math.NaN(), "USD"))
}

func TestDisplayZone(t *testing.T) {
	assert.Equal(t, time.UTC, DisplayZone(0))

	_, offset := time.Unix(0, 0).In(DisplayZone(9)).Zone()
	assert.Equal(t, 9*3600, offset)
}
