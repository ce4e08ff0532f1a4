package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

var (
	// ErrLoadTimeout means the tab did not finish loading within the caller's
	// budget.
	ErrLoadTimeout = errors.New("tab load timed out")
	// ErrTabGone means the tab was closed or its target became invalid while
	// waiting.
	ErrTabGone = errors.New("tab is gone")
)

// pollInterval is how often the monitor actively re-queries readiness. The
// poll exists because CDP event delivery is not guaranteed reliable; the load
// event and the poll race, first signal wins.
const pollInterval = 500 * time.Millisecond

// loadSignal is one readiness observation from either signal source.
type loadSignal struct {
	phase Phase
	err   error
}

// WaitForLoad blocks until the tab finishes loading, the timeout elapses, or
// the tab disappears. It resolves exactly once: nil for loaded, ErrLoadTimeout
// or ErrTabGone otherwise. All listeners are detached before returning.
func (b *Browser) WaitForLoad(ctx context.Context, tab *TabHandle, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events := make(chan loadSignal, 4)

	// Listener scope is tied to waitCtx so the subscription dies with the
	// wait, never leaking into the next session.
	listenCtx, stopListen := context.WithCancel(tab.ctx)
	defer stopListen()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		switch ev.(type) {
		case *page.EventLoadEventFired:
			select {
			case events <- loadSignal{phase: PhaseComplete}:
			default:
			}
		case *inspector.EventDetached, *inspector.EventTargetCrashed:
			select {
			case events <- loadSignal{phase: PhaseGone, err: ErrTabGone}:
			default:
			}
		}
	})

	err := awaitLoad(waitCtx, events, func(pollCtx context.Context) loadSignal {
		return b.pollReadyState(pollCtx, tab)
	})

	switch {
	case err == nil:
		tab.Phase = PhaseComplete
	case errors.Is(err, ErrTabGone):
		tab.Phase = PhaseGone
	}
	log.Debug("load wait resolved", "target", tab.ID, "phase", tab.Phase, "err", err)
	return err
}

// awaitLoad races the event channel against the poll function and resolves
// exactly once. Factored out of WaitForLoad so the race can be exercised
// without a browser.
func awaitLoad(ctx context.Context, events <-chan loadSignal, poll func(context.Context) loadSignal) error {
	var (
		once     sync.Once
		resolved = make(chan error, 1)
	)
	resolve := func(err error) {
		once.Do(func() { resolved <- err })
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-events:
			if sig.err != nil {
				resolve(sig.err)
			} else if sig.phase == PhaseComplete {
				resolve(nil)
			}
		case <-ticker.C:
			sig := poll(ctx)
			if sig.err != nil {
				resolve(sig.err)
			} else if sig.phase == PhaseComplete {
				resolve(nil)
			}
		case <-ctx.Done():
			resolve(ErrLoadTimeout)
		}

		select {
		case err := <-resolved:
			return err
		default:
		}
	}
}

// pollReadyState actively queries document.readyState over CDP. A dead tab
// context reports gone instead of waiting out the timeout.
func (b *Browser) pollReadyState(ctx context.Context, tab *TabHandle) loadSignal {
	if tab.ctx.Err() != nil {
		return loadSignal{phase: PhaseGone, err: ErrTabGone}
	}

	pollCtx, cancel := mergeTabContext(ctx, tab)
	defer cancel()
	pollCtx, pollCancel := context.WithTimeout(pollCtx, pollInterval)
	defer pollCancel()

	var readyState string
	err := chromedp.Run(pollCtx, chromedp.Evaluate("document.readyState", &readyState))
	if err != nil {
		if tab.ctx.Err() != nil {
			return loadSignal{phase: PhaseGone, err: ErrTabGone}
		}
		// Transient evaluation failure mid-navigation; let the next tick or
		// the event listener decide.
		return loadSignal{phase: PhaseLoading}
	}
	if readyState == "complete" {
		return loadSignal{phase: PhaseComplete}
	}
	return loadSignal{phase: PhaseLoading}
}
