package chart

// Line chart appearance.
const (
	LineColor   = "#38bdf8"
	FillColor   = "rgba(56, 189, 248, 0.15)"
	LineWidth   = 2
	PointRadius = 0
	LineTension = 0.25
)

// Options describes the line chart created on first render.
type Options struct {
	Label       string
	Labels      []string
	Values      []float64
	LineColor   string
	FillColor   string
	LineWidth   float64
	PointRadius float64
	Tension     float64
	MaxTicks    int
	ShowXGrid   bool
	// YTick formats y-axis tick values
	YTick func(float64) string
	// Tooltip formats a hovered value
	Tooltip func(float64) string
}

// Charts creates chart instances on the page canvas.
type Charts interface {
	Create(opts Options) (Instance, error)
}

// Instance is a live chart that is updated in place.
type Instance interface {
	Update(labels []string, values []float64, maxTicks int) error
}
