package widget

import (
	"context"
	"sync"

	"github.com/newthinker/coinchart/internal/core"
	"github.com/newthinker/coinchart/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Constructor builds a widget; it is the script's global entry point.
type Constructor func(opts Options) error

// Host is the page runtime the widget script is loaded into.
type Host interface {
	// InjectScript adds a script tag for src and returns once it has
	// loaded or failed.
	InjectScript(ctx context.Context, src string) error
	// Constructor returns the widget constructor the script installs.
	Constructor() (Constructor, bool)
}

// ScriptLoader loads a script at most once per URL. Concurrent loads of
// the same URL share one injection; failed loads may be retried.
type ScriptLoader struct {
	group   singleflight.Group
	metrics *metrics.Registry

	mu     sync.Mutex
	loaded map[string]bool
}

// NewScriptLoader creates a ScriptLoader. reg may be nil.
func NewScriptLoader(reg *metrics.Registry) *ScriptLoader {
	return &ScriptLoader{
		metrics: reg,
		loaded:  make(map[string]bool),
	}
}

// Load makes sure src has run on host. It returns at once when the widget
// constructor is already present or src has loaded before.
func (l *ScriptLoader) Load(ctx context.Context, host Host, src string) error {
	if _, ok := host.Constructor(); ok {
		return nil
	}
	l.mu.Lock()
	done := l.loaded[src]
	l.mu.Unlock()
	if done {
		return nil
	}

	// The shared injection outlives any one caller's cancellation
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(src, func() (any, error) {
		if err := host.InjectScript(shared, src); err != nil {
			l.record("failed")
			return nil, core.WrapError(core.ErrScriptLoad, err)
		}
		l.mu.Lock()
		l.loaded[src] = true
		l.mu.Unlock()
		l.record("ok")
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether src has loaded successfully.
func (l *ScriptLoader) Loaded(src string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[src]
}

func (l *ScriptLoader) record(result string) {
	if l.metrics != nil {
		l.metrics.RecordScriptLoad(result)
	}
}
