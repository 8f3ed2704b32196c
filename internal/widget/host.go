package widget

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"
)

// maxScriptBytes bounds how much of a script body is read
const maxScriptBytes = 8 << 20

// HTTPHost is a Host for headless runs: scripts are fetched over HTTP and,
// once any has loaded, the configured constructor is exposed.
type HTTPHost struct {
	client    *http.Client
	construct Constructor

	mu         sync.Mutex
	loaded     map[string]bool
	injections int
}

// NewHTTPHost creates an HTTPHost. A nil client uses a 15s timeout.
func NewHTTPHost(client *http.Client, construct Constructor) *HTTPHost {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPHost{
		client:    client,
		construct: construct,
		loaded:    make(map[string]bool),
	}
}

// InjectScript implements Host.
func (h *HTTPHost) InjectScript(ctx context.Context, src string) error {
	h.mu.Lock()
	h.injections++
	h.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	if n == 0 {
		return errors.New("empty script body")
	}

	h.mu.Lock()
	h.loaded[src] = true
	h.mu.Unlock()
	return nil
}

// Constructor implements Host.
func (h *HTTPHost) Constructor() (Constructor, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.loaded) == 0 || h.construct == nil {
		return nil, false
	}
	return h.construct, true
}

// Injections returns how many script tags were injected.
func (h *HTTPHost) Injections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.injections
}

var embedTemplate = template.Must(template.New("embed").Parse(`<div id="{{.ContainerID}}Container"><div id="{{.ContainerID}}"></div></div>
<script src="{{.ScriptURL}}"></script>
<script>new TradingView.widget({{.Options}});</script>
`))

// EmbedWriter returns a Constructor that writes a standalone HTML embed of
// the widget to w.
func EmbedWriter(w io.Writer, scriptURL string) Constructor {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	return func(opts Options) error {
		if opts.Symbol == "" {
			return errors.New("symbol is required")
		}
		return embedTemplate.Execute(w, struct {
			ContainerID string
			ScriptURL   string
			Options     Options
		}{opts.ContainerID, scriptURL, opts})
	}
}
