package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/go-scripts/liimport/internal/browser"
	"github.com/go-scripts/liimport/internal/normalize"
	"github.com/go-scripts/liimport/internal/scraper"
)

// profileURLMarker must appear in every accepted profile URL.
const profileURLMarker = "linkedin.com/in"

// destImportPath is where a fresh destination tab is opened when the host app
// has no tab yet.
const destImportPath = "/profile/import"

// Tabs is the tab management surface the importer drives.
type Tabs interface {
	Open(ctx context.Context, url string) (*browser.TabHandle, error)
	Find(ctx context.Context, match browser.TabMatch) (*browser.TabHandle, error)
	Active(ctx context.Context) (*browser.TabHandle, error)
	Activate(ctx context.Context, tab *browser.TabHandle) error
	WaitForLoad(ctx context.Context, tab *browser.TabHandle, timeout time.Duration) error
}

// ProfileScraper is the page-scoped scrape engine surface.
type ProfileScraper interface {
	Ping(ctx context.Context, tab *browser.TabHandle) error
	Inject(ctx context.Context, tab *browser.TabHandle) error
	Scrape(ctx context.Context, tab *browser.TabHandle) (*scraper.Payload, error)
}

// Deliverer is the delivery-bridge surface.
type Deliverer interface {
	Inject(ctx context.Context, tab *browser.TabHandle) error
	TryDeliver(ctx context.Context, tab *browser.TabHandle, profile json.RawMessage) error
}

// Normalizer turns a scrape payload into a structured resume profile.
type Normalizer interface {
	Normalize(ctx context.Context, payload *scraper.Payload, opts normalize.Options) (json.RawMessage, error)
}

// ConfigSource resolves the normalization API base address. Never fails.
type ConfigSource interface {
	Resolve() string
}

// Timings are the per-step budgets and settle delays. The settle delays are
// renderer catch-up heuristics, not correctness guarantees.
type Timings struct {
	SessionBudget time.Duration
	LoadTimeout   time.Duration
	SourceSettle  time.Duration
	InjectSettle  time.Duration
	DestSettle    time.Duration
	BridgeSettle  time.Duration
	PingTimeout   time.Duration
	ScrapeTimeout time.Duration
	DeliverBudget time.Duration
}

// DefaultTimings match the production pipeline.
func DefaultTimings() Timings {
	return Timings{
		SessionBudget: 2 * time.Minute,
		LoadTimeout:   30 * time.Second,
		SourceSettle:  2 * time.Second,
		InjectSettle:  750 * time.Millisecond,
		DestSettle:    1500 * time.Millisecond,
		BridgeSettle:  time.Second,
		PingTimeout:   2 * time.Second,
		ScrapeTimeout: 30 * time.Second,
		DeliverBudget: 5 * time.Second,
	}
}

// Request starts one import.
type Request struct {
	ProfileURL string `validate:"required"`
	Token      string
	Model      string
}

// Result is what the caller gets back; Error is rendered to the user as-is.
type Result struct {
	OK        bool            `json:"ok"`
	SessionID string          `json:"session_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Profile   json.RawMessage `json:"profile,omitempty"`
}

// Importer owns the import state machine. Side effects are strictly
// sequential: one outstanding cross-context request at a time.
type Importer struct {
	Tabs          Tabs
	Scraper       ProfileScraper
	Deliverer     Deliverer
	Config        ConfigSource
	NewNormalizer func(apiBase string) Normalizer

	// AppOrigin is the host application's origin for destination-tab
	// resolution; defaults to the resolved API base.
	AppOrigin string

	// OnTransition, when set, observes every state the session enters.
	OnTransition func(State)

	Timings  Timings
	slot     slot
	validate *validator.Validate
}

// New wires an importer from its collaborators.
func New(tabs Tabs, sc ProfileScraper, del Deliverer, cfg ConfigSource, newNorm func(string) Normalizer) *Importer {
	return &Importer{
		Tabs:          tabs,
		Scraper:       sc,
		Deliverer:     del,
		Config:        cfg,
		NewNormalizer: newNorm,
		Timings:       DefaultTimings(),
		validate:      validator.New(),
	}
}

// NormalizeProfileURL prefixes scheme-less input and validates the required
// site marker. Returns ErrInvalidProfileURL before any tab exists.
func NormalizeProfileURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", ErrInvalidProfileURL
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	if !strings.Contains(u, profileURLMarker) {
		return "", ErrInvalidProfileURL
	}
	return u, nil
}

// Run drives one full import session. A second call while a session is in
// flight fails synchronously with ErrImportInProgress.
func (imp *Importer) Run(ctx context.Context, req Request) Result {
	sess := &Session{
		ID:        uuid.NewString(),
		State:     StateIdle,
		StartedAt: time.Now(),
	}
	sess.DeadlineAt = sess.StartedAt.Add(imp.Timings.SessionBudget)

	if err := imp.validate.Struct(req); err != nil {
		return Result{SessionID: sess.ID, Error: ErrInvalidProfileURL.Error()}
	}
	if err := imp.slot.acquire(sess); err != nil {
		return Result{SessionID: sess.ID, Error: err.Error()}
	}
	defer imp.slot.release()
	defer sess.closeTabs()

	ctx, cancel := context.WithDeadline(ctx, sess.DeadlineAt)
	defer cancel()

	log.Info("import session started", "session", sess.ID, "url", req.ProfileURL)

	// ResolvingConfig is pure and synchronous; it cannot fail.
	imp.enter(sess, StateResolvingConfig)
	apiBase := imp.Config.Resolve()
	appOrigin := imp.AppOrigin
	if appOrigin == "" {
		appOrigin = apiBase
	}

	imp.enter(sess, StateOpeningSourceTab)
	profileURL, err := NormalizeProfileURL(req.ProfileURL)
	if err != nil {
		return imp.fail(sess, err)
	}
	source, err := imp.Tabs.Open(ctx, profileURL)
	if err != nil {
		return imp.fail(sess, fmt.Errorf("open source tab: %w", err))
	}
	sess.Source = source
	if err := imp.Tabs.Activate(ctx, source); err != nil {
		log.Warn("could not activate source tab", "session", sess.ID, "err", err)
	}

	imp.enter(sess, StateAwaitingSourceLoad)
	if err := imp.Tabs.WaitForLoad(ctx, source, imp.Timings.LoadTimeout); err != nil {
		return imp.fail(sess, err)
	}
	// Load fired, but client-side rendering is still catching up.
	settle(ctx, imp.Timings.SourceSettle)

	if err := imp.ensureScraper(ctx, sess, source); err != nil {
		return imp.fail(sess, err)
	}

	imp.enter(sess, StateScraping)
	payload, err := imp.scrape(ctx, source)
	if err != nil {
		return imp.fail(sess, err)
	}

	imp.enter(sess, StateNormalizing)
	profile, err := imp.NewNormalizer(apiBase).Normalize(ctx, payload, normalize.Options{
		Token: req.Token,
		Model: req.Model,
	})
	if err != nil {
		return imp.fail(sess, fmt.Errorf("%w: %v", ErrNormalizationFailed, err))
	}

	imp.enter(sess, StateResolvingDestinationTab)
	dest, err := imp.resolveDestination(ctx, appOrigin)
	if err != nil {
		return imp.fail(sess, err)
	}
	sess.Dest = dest

	if err := imp.deliver(ctx, sess, dest, profile); err != nil {
		return imp.fail(sess, err)
	}

	if err := imp.Tabs.Activate(ctx, dest); err != nil {
		log.Warn("could not focus destination tab", "session", sess.ID, "err", err)
	}

	imp.enter(sess, StateDone)
	log.Info("import session complete", "session", sess.ID,
		"elapsed", time.Since(sess.StartedAt).Round(time.Millisecond))
	return Result{OK: true, SessionID: sess.ID, Profile: profile}
}

// ScrapeActiveTab scrapes whatever tab is currently focused, bypassing tab
// creation and URL validation. Same single-session guard as Run.
func (imp *Importer) ScrapeActiveTab(ctx context.Context) (*scraper.Payload, error) {
	sess := &Session{ID: uuid.NewString(), State: StateIdle, StartedAt: time.Now()}
	sess.DeadlineAt = sess.StartedAt.Add(imp.Timings.SessionBudget)

	if err := imp.slot.acquire(sess); err != nil {
		return nil, err
	}
	defer imp.slot.release()
	defer sess.closeTabs()

	ctx, cancel := context.WithDeadline(ctx, sess.DeadlineAt)
	defer cancel()

	tab, err := imp.Tabs.Active(ctx)
	if err != nil {
		return nil, err
	}
	sess.Source = tab

	if err := imp.ensureScraper(ctx, sess, tab); err != nil {
		return nil, err
	}
	imp.enter(sess, StateScraping)
	return imp.scrape(ctx, tab)
}

// ensureScraper pings the page-scoped scraper and installs it when absent.
// Exactly one injection attempt per entry, never more.
func (imp *Importer) ensureScraper(ctx context.Context, sess *Session, tab *browser.TabHandle) error {
	imp.enter(sess, StateEnsuringScraper)

	pingCtx, cancel := context.WithTimeout(ctx, imp.Timings.PingTimeout)
	err := imp.Scraper.Ping(pingCtx, tab)
	cancel()
	if err == nil {
		return nil
	}

	log.Debug("scraper not responding, injecting", "session", sess.ID, "err", err)
	if err := imp.Scraper.Inject(ctx, tab); err != nil {
		return fmt.Errorf("%w: %v", ErrScraperInjectFailed, err)
	}
	settle(ctx, imp.Timings.InjectSettle)
	return nil
}

func (imp *Importer) scrape(ctx context.Context, tab *browser.TabHandle) (*scraper.Payload, error) {
	scrapeCtx, cancel := context.WithTimeout(ctx, imp.Timings.ScrapeTimeout)
	defer cancel()

	payload, err := imp.Scraper.Scrape(scrapeCtx, tab)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: site blocked or unresponsive", ErrScrapeFailed)
		}
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	return payload, nil
}

// resolveDestination finds the host application's tab: prefer one already on
// a profile path, fall back to any tab on the app origin, and open a fresh
// import page when the app isn't open at all.
func (imp *Importer) resolveDestination(ctx context.Context, origin string) (*browser.TabHandle, error) {
	onOrigin := func(url string) bool { return strings.HasPrefix(url, origin) }
	onProfile := func(url string) bool {
		return onOrigin(url) && strings.Contains(url, "/profile")
	}

	if tab, err := imp.Tabs.Find(ctx, onProfile); err != nil {
		return nil, err
	} else if tab != nil {
		return tab, nil
	}
	if tab, err := imp.Tabs.Find(ctx, onOrigin); err != nil {
		return nil, err
	} else if tab != nil {
		return tab, nil
	}

	tab, err := imp.Tabs.Open(ctx, origin+destImportPath)
	if err != nil {
		return nil, fmt.Errorf("open destination tab: %w", err)
	}
	if err := imp.Tabs.WaitForLoad(ctx, tab, imp.Timings.LoadTimeout); err != nil {
		tab.Close()
		return nil, err
	}
	// Give the host app time to register its own bridge-ready hooks.
	settle(ctx, imp.Timings.DestSettle)
	return tab, nil
}

// deliver hands the profile to the host app: optimistic first send, then one
// inject-and-retry. The single retry is a deliberate worst-case latency
// bound, not a placeholder for a retry loop.
func (imp *Importer) deliver(ctx context.Context, sess *Session, dest *browser.TabHandle, profile json.RawMessage) error {
	imp.enter(sess, StateEnsuringBridge)

	tryCtx, cancel := context.WithTimeout(ctx, imp.Timings.DeliverBudget)
	err := imp.Deliverer.TryDeliver(tryCtx, dest, profile)
	cancel()
	if err == nil {
		imp.enter(sess, StateDelivering)
		return nil
	}

	log.Debug("direct delivery failed, injecting bridge", "session", sess.ID, "err", err)
	if err := imp.Deliverer.Inject(ctx, dest); err != nil {
		return fmt.Errorf("%w: bridge injection: %v", ErrDeliveryFailed, err)
	}
	settle(ctx, imp.Timings.BridgeSettle)

	imp.enter(sess, StateDelivering)
	retryCtx, cancel := context.WithTimeout(ctx, imp.Timings.DeliverBudget)
	defer cancel()
	if err := imp.Deliverer.TryDeliver(retryCtx, dest, profile); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (imp *Importer) enter(sess *Session, state State) {
	sess.State = state
	log.Debug("state", "session", sess.ID, "state", state)
	if imp.OnTransition != nil {
		imp.OnTransition(state)
	}
}

// fail is the single failure boundary: every terminal error is annotated with
// its originating state, logged, and flattened into the caller-facing result.
func (imp *Importer) fail(sess *Session, err error) Result {
	failure := &Failure{State: sess.State, Err: err}
	sess.State = StateFailed
	log.Error("import session failed", "session", sess.ID,
		"state", failure.State, "err", err)
	return Result{SessionID: sess.ID, Error: failure.Error()}
}

// settle waits a fixed delay, bailing early when the session is cancelled.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
