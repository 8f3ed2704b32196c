// Package pngchart renders the coin price chart to a PNG file with go-chart.
package pngchart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/newthinker/coinchart/internal/chart"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 360
)

// Renderer is a chart.Charts that draws into a single PNG file.
type Renderer struct {
	path   string
	width  int
	height int
	logger *zap.Logger
}

// New creates a Renderer writing to path. Non-positive dimensions use the
// defaults.
func New(path string, width, height int, logger *zap.Logger) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{path: path, width: width, height: height, logger: logger}
}

// Create implements chart.Charts and draws the first frame.
func (r *Renderer) Create(opts chart.Options) (chart.Instance, error) {
	inst := &Instance{r: r, opts: opts}
	if err := inst.draw(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Instance is the live chart; every update rewrites the PNG.
type Instance struct {
	r *Renderer

	mu      sync.Mutex
	opts    chart.Options
	renders int
}

// Update implements chart.Instance.
func (i *Instance) Update(labels []string, values []float64, maxTicks int) error {
	i.mu.Lock()
	i.opts.Labels = labels
	i.opts.Values = values
	i.opts.MaxTicks = maxTicks
	i.mu.Unlock()
	return i.draw()
}

// Renders returns how many frames were written.
func (i *Instance) Renders() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.renders
}

func (i *Instance) draw() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var buf bytes.Buffer
	if err := i.encode(&buf); err != nil {
		return err
	}
	if err := writeFile(i.r.path, buf.Bytes()); err != nil {
		return err
	}
	i.renders++
	return nil
}

// encode renders the chart, or a blank frame when there is nothing to plot
func (i *Instance) encode(buf *bytes.Buffer) error {
	if len(i.opts.Values) < 2 {
		return blank(buf, i.r.width, i.r.height)
	}

	ch := build(i.opts, i.r.width, i.r.height)
	if err := ch.Render(gochart.PNG, buf); err != nil {
		i.r.logger.Warn("chart render failed, writing blank frame",
			zap.Int("points", len(i.opts.Values)),
			zap.Error(err),
		)
		buf.Reset()
		return blank(buf, i.r.width, i.r.height)
	}
	return nil
}

func build(opts chart.Options, width, height int) gochart.Chart {
	xs := make([]float64, len(opts.Values))
	for idx := range xs {
		xs[idx] = float64(idx)
	}

	line := parseColor(opts.LineColor, drawing.ColorBlue)
	fill := parseColor(opts.FillColor, drawing.ColorTransparent)

	title := opts.Label
	if opts.Tooltip != nil {
		if last := opts.Tooltip(opts.Values[len(opts.Values)-1]); last != "" {
			title += " " + last
		}
	}

	yFormatter := func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		if opts.YTick != nil {
			return opts.YTick(f)
		}
		return fmt.Sprintf("%g", f)
	}

	xGrid := gochart.Style{Hidden: true}
	if opts.ShowXGrid {
		xGrid = gochart.Style{StrokeColor: drawing.ColorFromHex("e5e7eb"), StrokeWidth: 1}
	}

	return gochart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: gochart.XAxis{
			Ticks:          ticks(opts.Labels, opts.MaxTicks),
			GridMajorStyle: xGrid,
			GridMinorStyle: gochart.Style{Hidden: true},
		},
		YAxis: gochart.YAxis{
			ValueFormatter: yFormatter,
			GridMajorStyle: gochart.Style{StrokeColor: drawing.ColorFromHex("e5e7eb"), StrokeWidth: 1},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    opts.Label,
				XValues: xs,
				YValues: opts.Values,
				Style: gochart.Style{
					StrokeColor: line,
					StrokeWidth: opts.LineWidth,
					FillColor:   fill,
					DotWidth:    opts.PointRadius,
				},
			},
		},
	}
}

// ticks spreads at most maxTicks labels evenly over the points
func ticks(labels []string, maxTicks int) []gochart.Tick {
	if len(labels) == 0 {
		return nil
	}
	if maxTicks < 2 {
		maxTicks = 2
	}
	step := int(math.Ceil(float64(len(labels)) / float64(maxTicks)))
	if step < 1 {
		step = 1
	}

	out := make([]gochart.Tick, 0, maxTicks)
	for idx := 0; idx < len(labels); idx += step {
		out = append(out, gochart.Tick{Value: float64(idx), Label: labels[idx]})
	}
	return out
}

// parseColor reads "#rrggbb" and "rgba(r, g, b, a)" colors
func parseColor(s string, fallback drawing.Color) drawing.Color {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	case strings.HasPrefix(s, "rgba("):
		var r, g, b uint8
		var a float64
		if _, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err != nil {
			return fallback
		}
		return drawing.Color{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
	default:
		return fallback
	}
}

func blank(buf *bytes.Buffer, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return png.Encode(buf, img)
}

// writeFile replaces path atomically
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating chart directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing chart: %w", err)
	}
	return nil
}
