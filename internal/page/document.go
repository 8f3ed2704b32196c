// Package page models the coin detail page the chart pipeline works on.
package page

// Element ids and selectors shared by the page template and the chart
// pipeline.
const (
	CanvasID             = "coinChart"
	WidgetID             = "tradingviewWidget"
	WidgetContainerID    = "tradingviewWidgetContainer"
	RangeSelectorClass   = "chart-range-selector"
	ActiveButtonClass    = "is-active"
	hiddenDisplayKeyword = "none"
)

// Element is a node whose visibility the pipeline toggles.
type Element interface {
	ID() string
	Show()
	Hide()
	Visible() bool
}

// RangeButton is one button of the range selector.
type RangeButton interface {
	// Days returns the button's day count; ok is false when the
	// data-days attribute is missing or not an integer.
	Days() (days int, ok bool)
	SetActive(active bool)
	Active() bool
	// OnClick registers a handler run on every click.
	OnClick(handler func())
}

// Document is the subset of the DOM used by the chart pipeline.
type Document interface {
	ElementByID(id string) (Element, bool)
	// RangeSelector returns the element wrapping the range buttons.
	RangeSelector() (Element, bool)
	RangeButtons() []RangeButton
	// RootAttr reads an attribute of the document root element.
	RootAttr(name string) (string, bool)
	RootHasClass(class string) bool
	// ChartData returns the dataset of the chart script tag keyed the way
	// a browser exposes it (data-coin-id becomes coinId).
	ChartData() map[string]string
}
