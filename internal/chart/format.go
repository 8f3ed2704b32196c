package chart

import (
	"math"
	"strconv"
	"time"

	"github.com/newthinker/coinchart/internal/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// ShortRangeDays is the longest range labelled with time of day
	ShortRangeDays = 7

	shortLabelLayout = "Jan 2 15:04"
	longLabelLayout  = "Jan 2"
)

// MaxTicks returns the x-axis tick budget for a range.
func MaxTicks(days int) int {
	if days <= ShortRangeDays {
		return 8
	}
	return 12
}

// TickLabel abbreviates a y-axis value with K, M or B.
func TickLabel(v float64) string {
	switch {
	case v >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case v >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case v >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Formatter renders axis labels in a display time zone and tooltips with
// Korean digit grouping.
type Formatter struct {
	loc     *time.Location
	printer *message.Printer
}

// NewFormatter creates a Formatter for loc; nil means UTC.
func NewFormatter(loc *time.Location) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{
		loc:     loc,
		printer: message.NewPrinter(language.Korean),
	}
}

// DisplayZone returns a fixed zone offset hours from UTC.
func DisplayZone(offsetHours int) *time.Location {
	if offsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone("UTC"+strconv.FormatInt(int64(offsetHours), 10), offsetHours*3600)
}

// Label formats a timestamp for a range of days.
func (f Formatter) Label(ts int64, days int) string {
	t := time.UnixMilli(ts).In(f.loc)
	if days <= ShortRangeDays {
		return t.Format(shortLabelLayout)
	}
	return t.Format(longLabelLayout)
}

// Labels maps points to x-axis labels, preserving order.
func (f Formatter) Labels(points []core.PricePoint, days int) []string {
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = f.Label(p.Timestamp, days)
	}
	return labels
}

// Tooltip formats a value with two decimals and the currency code. NaN
// yields an empty string.
func (f Formatter) Tooltip(v float64, currency string) string {
	if math.IsNaN(v) {
		return ""
	}
	amount := f.printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

// Values extracts the y values of points.
func Values(points []core.PricePoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}
