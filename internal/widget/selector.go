package widget

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/coinchart/internal/chart"
	"github.com/newthinker/coinchart/internal/core"
	"github.com/newthinker/coinchart/internal/metrics"
	"github.com/newthinker/coinchart/internal/page"
	"go.uber.org/zap"
)

// Renderers reported in an Outcome.
const (
	RendererWidget   = "widget"
	RendererFallback = "fallback"
)

// Reasons a page ended up on the local chart.
const (
	ReasonNoSymbol     = "no_symbol"
	ReasonMountMissing = "mount_missing"
	ReasonScriptLoad   = "script_load"
	ReasonUnavailable  = "widget_unavailable"
	ReasonInitFailed   = "init_failed"
)

// Fallback renders the local chart.
type Fallback interface {
	Initialize(ctx context.Context, cfg chart.Config)
}

// Outcome describes which renderer SelectAndRender chose.
type Outcome struct {
	Renderer string
	// Reason is set for fallbacks
	Reason string
	// Err is the failure that caused a fallback, if any
	Err error
}

// SelectorOptions configures a Selector. Zero values are usable.
type SelectorOptions struct {
	ScriptURL string
	Logger    *zap.Logger
	Metrics   *metrics.Registry
}

// Selector chooses between the TradingView widget and the local chart.
type Selector struct {
	doc       page.Document
	host      Host
	loader    *ScriptLoader
	fallback  Fallback
	scriptURL string
	logger    *zap.Logger
	metrics   *metrics.Registry
}

// NewSelector creates a Selector for doc.
func NewSelector(doc page.Document, host Host, loader *ScriptLoader, fallback Fallback, opts SelectorOptions) *Selector {
	if opts.ScriptURL == "" {
		opts.ScriptURL = DefaultScriptURL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewScriptLoader(opts.Metrics)
	}
	return &Selector{
		doc:       doc,
		host:      host,
		loader:    loader,
		fallback:  fallback,
		scriptURL: opts.ScriptURL,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// SelectAndRender renders the widget when cfg names an external symbol and
// everything it needs is available. Otherwise the local chart is shown and
// the fallback runs exactly once. It never fails.
func (s *Selector) SelectAndRender(ctx context.Context, cfg chart.Config) Outcome {
	if cfg.ExternalSymbol == "" {
		return s.runFallback(ctx, cfg, ReasonNoSymbol, nil)
	}

	_, hasWidget := s.doc.ElementByID(page.WidgetID)
	_, hasContainer := s.doc.ElementByID(page.WidgetContainerID)
	if !hasWidget || !hasContainer {
		err := core.WrapError(core.ErrMountMissing, fmt.Errorf("need #%s and #%s", page.WidgetID, page.WidgetContainerID))
		s.logger.Warn("widget container missing, using local chart", zap.Error(err))
		return s.runFallback(ctx, cfg, ReasonMountMissing, err)
	}

	s.setLocalChartVisible(false)

	if err := s.loader.Load(ctx, s.host, s.scriptURL); err != nil {
		s.logger.Warn("widget script failed to load, using local chart",
			zap.String("url", s.scriptURL),
			zap.Error(err),
		)
		return s.restoreAndFallback(ctx, cfg, ReasonScriptLoad, err)
	}

	construct, ok := s.host.Constructor()
	if !ok || construct == nil {
		err := core.WrapError(core.ErrWidgetUnavailable, errors.New("constructor not installed by script"))
		s.logger.Warn("widget library not initialized, using local chart", zap.Error(err))
		return s.restoreAndFallback(ctx, cfg, ReasonUnavailable, err)
	}

	opts := NewOptions(cfg.ExternalSymbol, DetectTheme(s.doc))
	if err := safeConstruct(construct, opts); err != nil {
		err = core.WrapError(core.ErrWidgetInit, err)
		s.logger.Warn("widget initialization failed, using local chart",
			zap.String("symbol", cfg.ExternalSymbol),
			zap.Error(err),
		)
		return s.restoreAndFallback(ctx, cfg, ReasonInitFailed, err)
	}

	s.logger.Debug("widget rendered",
		zap.String("symbol", opts.Symbol),
		zap.String("theme", opts.Theme),
	)
	s.record(RendererWidget, "ok")
	return Outcome{Renderer: RendererWidget}
}

func (s *Selector) restoreAndFallback(ctx context.Context, cfg chart.Config, reason string, err error) Outcome {
	s.setLocalChartVisible(true)
	return s.runFallback(ctx, cfg, reason, err)
}

func (s *Selector) runFallback(ctx context.Context, cfg chart.Config, reason string, err error) Outcome {
	s.record(RendererFallback, reason)
	if s.fallback != nil {
		s.fallback.Initialize(ctx, cfg)
	}
	return Outcome{Renderer: RendererFallback, Reason: reason, Err: err}
}

func (s *Selector) setLocalChartVisible(visible bool) {
	var elems []page.Element
	if sel, ok := s.doc.RangeSelector(); ok {
		elems = append(elems, sel)
	}
	if canvas, ok := s.doc.ElementByID(page.CanvasID); ok {
		elems = append(elems, canvas)
	}
	for _, e := range elems {
		if visible {
			e.Show()
		} else {
			e.Hide()
		}
	}
}

func (s *Selector) record(renderer, reason string) {
	if s.metrics != nil {
		s.metrics.RecordWidgetOutcome(renderer, reason)
	}
}

// safeConstruct turns a constructor panic into an error
func safeConstruct(construct Constructor, opts Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("widget constructor panicked: %v", r)
		}
	}()
	return construct(opts)
}
