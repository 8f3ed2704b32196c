// internal/api/handler/web/handler.go
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/newthinker/coinchart/internal/api/handler/api"
	"github.com/newthinker/coinchart/internal/chart"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// pages lists the page templates, each parsed together with layout.html
var pages = []string{"coin_detail.html"}

// SymbolResolver maps a coin to its TradingView symbol
type SymbolResolver interface {
	Resolve(coinID, symbol string) (string, bool)
}

// Options configures the coin page
type Options struct {
	DefaultDays int
	Ranges      []int
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds one template set per page: layout.html + the page
	pageTemplates map[string]*template.Template
	data          api.MarketData
	symbols       SymbolResolver
	opts          Options
	logger        *zap.Logger
}

func funcs() template.FuncMap {
	formatter := chart.NewFormatter(nil)
	return template.FuncMap{
		"upper": strings.ToUpper,
		"money": formatter.Tooltip,
		"percent": func(v float64) string {
			return fmt.Sprintf("%+.2f%%", v)
		},
	}
}

// NewHandler creates a web handler with templates loaded from the given
// directory. If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, data api.MarketData, symbols SymbolResolver, opts Options, logger *zap.Logger) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(templatesDir)
	} else {
		fsys = TemplateFS()
	}
	return NewHandlerWithFS(fsys, data, symbols, opts, logger)
}

// NewHandlerWithFS creates a web handler using a custom filesystem.
func NewHandlerWithFS(fsys fs.FS, data api.MarketData, symbols SymbolResolver, opts Options, logger *zap.Logger) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template)
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs()).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	if opts.DefaultDays < 1 {
		opts.DefaultDays = chart.DefaultRangeDays
	}
	if len(opts.Ranges) == 0 {
		opts.Ranges = []int{1, 7, 30, 90, 365}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		pageTemplates: pageTemplates,
		data:          data,
		symbols:       symbols,
		opts:          opts,
		logger:        logger,
	}, nil
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering page", zap.String("page", page), zap.Error(err))
	}
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// This should never happen with valid embed directive
		return templateFS
	}
	return subFS
}
