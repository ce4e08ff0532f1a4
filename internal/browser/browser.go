package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ErrNoActiveTab is returned when the browser has no page-type targets to
// attach to.
var ErrNoActiveTab = errors.New("no active tab")

// Options controls browser startup.
type Options struct {
	Headless  bool
	UserAgent string
}

// Browser owns the Chrome process and hands out tab handles. All cross-tab
// operations go through here; the per-tab contexts it creates are carried in
// the handles.
type Browser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New launches a browser instance and establishes the shared browser context.
func New(opts Options) (*Browser, error) {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if opts.Headless {
		execOpts = append(execOpts, chromedp.Headless)
	} else {
		execOpts = append(execOpts, chromedp.Flag("headless", false))
	}
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser to actually start so later tab operations don't race
	// process launch.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// Open creates a new tab, starts navigation to url and returns immediately.
// Load completion is the monitor's job, not Open's.
func (b *Browser) Open(ctx context.Context, url string) (*TabHandle, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)

	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, err := page.Navigate(url).Do(ctx)
		return err
	}))
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab for %s: %w", url, err)
	}

	tab := &TabHandle{
		ID:     chromedp.FromContext(tabCtx).Target.TargetID,
		URL:    url,
		Phase:  PhaseLoading,
		ctx:    tabCtx,
		cancel: tabCancel,
	}
	log.Debug("opened tab", "url", url, "target", tab.ID)
	return tab, nil
}

// Find scans existing page targets and attaches to the first whose URL
// satisfies match. Returns nil without error when nothing matches.
func (b *Browser) Find(ctx context.Context, match TabMatch) (*TabHandle, error) {
	infos, err := b.pageTargets(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if match(info.URL) {
			return b.attach(info)
		}
	}
	return nil, nil
}

// Active attaches to the focused page target, falling back to the first page
// target when none is marked attached.
func (b *Browser) Active(ctx context.Context) (*TabHandle, error) {
	infos, err := b.pageTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoActiveTab
	}
	for _, info := range infos {
		if info.Attached {
			return b.attach(info)
		}
	}
	return b.attach(infos[0])
}

// Activate brings the tab to the foreground.
func (b *Browser) Activate(ctx context.Context, tab *TabHandle) error {
	runCtx, cancel := context.WithTimeout(tab.ctx, 5*time.Second)
	defer cancel()
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.BringToFront().Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("activate tab %s: %w", tab.ID, err)
	}
	return nil
}

// Inject evaluates a script source in the tab's main world. Used to install
// the page-scoped scraper and delivery-bridge scripts.
func (b *Browser) Inject(ctx context.Context, tab *TabHandle, src string) error {
	runCtx, cancel := mergeTabContext(ctx, tab)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(src, nil)); err != nil {
		return fmt.Errorf("inject script into tab %s: %w", tab.ID, err)
	}
	return nil
}

func (b *Browser) attach(info *target.Info) (*TabHandle, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(info.TargetID))
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("attach to tab %s: %w", info.TargetID, err)
	}
	phase := PhaseComplete
	return &TabHandle{
		ID:     info.TargetID,
		URL:    info.URL,
		Phase:  phase,
		ctx:    tabCtx,
		cancel: tabCancel,
	}, nil
}

func (b *Browser) pageTargets(ctx context.Context) ([]*target.Info, error) {
	var infos []*target.Info
	err := chromedp.Run(b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		infos, err = target.GetTargets().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	pages := make([]*target.Info, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// mergeTabContext bounds a tab-scoped chromedp run by the caller's context
// without replacing the tab's own lifetime.
func mergeTabContext(ctx context.Context, tab *TabHandle) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(tab.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
