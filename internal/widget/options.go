// Package widget renders the TradingView chart widget on the coin detail
// page and falls back to the local chart when it cannot.
package widget

import "github.com/newthinker/coinchart/internal/page"

const (
	DefaultScriptURL = "https://s3.tradingview.com/tv.js"

	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Options are the widget constructor arguments.
type Options struct {
	ContainerID       string `json:"container_id"`
	Autosize          bool   `json:"autosize"`
	Symbol            string `json:"symbol"`
	Interval          string `json:"interval"`
	Timezone          string `json:"timezone"`
	Theme             string `json:"theme"`
	Style             string `json:"style"`
	Locale            string `json:"locale"`
	EnablePublishing  bool   `json:"enable_publishing"`
	HideSideToolbar   bool   `json:"hide_side_toolbar"`
	HideTopToolbar    bool   `json:"hide_top_toolbar"`
	AllowSymbolChange bool   `json:"allow_symbol_change"`
	WithDateRanges    bool   `json:"withdateranges"`
	Details           bool   `json:"details"`
	Hotlist           bool   `json:"hotlist"`
	Calendar          bool   `json:"calendar"`
}

// NewOptions returns the widget options for symbol rendered in theme.
func NewOptions(symbol, theme string) Options {
	return Options{
		ContainerID:    page.WidgetID,
		Autosize:       true,
		Symbol:         symbol,
		Interval:       "60",
		Timezone:       "Etc/UTC",
		Theme:          theme,
		Style:          "1",
		Locale:         "ko",
		WithDateRanges: true,
	}
}

// DetectTheme reads the page theme: a non-empty data-theme on the root
// wins, then a dark or theme-dark root class, else light.
func DetectTheme(doc page.Document) string {
	if theme, ok := doc.RootAttr("data-theme"); ok && theme != "" {
		if theme == ThemeDark {
			return ThemeDark
		}
		return ThemeLight
	}
	if doc.RootHasClass("dark") || doc.RootHasClass("theme-dark") {
		return ThemeDark
	}
	return ThemeLight
}
