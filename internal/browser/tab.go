package browser

import (
	"context"

	"github.com/chromedp/cdproto/target"
)

// Phase is the last-known lifecycle phase of a tab.
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseComplete Phase = "complete"
	PhaseGone     Phase = "gone"
)

// TabHandle is an opaque reference to one browser tab plus its last-known
// phase. The handle is owned by whichever component requested the tab; it is
// never shared mutable state across contexts.
type TabHandle struct {
	ID    target.ID
	URL   string
	Phase Phase

	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the chromedp context attached to this tab.
func (t *TabHandle) Context() context.Context {
	return t.ctx
}

// Close detaches from the tab and releases its context. The tab itself is
// left open unless the browser closes it.
func (t *TabHandle) Close() {
	if t.cancel != nil {
		t.cancel()
	}
	t.Phase = PhaseGone
}

// TabMatch selects tabs by URL during destination resolution.
type TabMatch func(url string) bool
