package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/liimport/internal/browser"
	"github.com/go-scripts/liimport/internal/protocol"
)

// Engine drives the page-scoped scrape helper: it checks liveness, installs
// the helper when absent, and turns the captured document into a Payload.
type Engine struct {
	host browser.ScriptHost
}

// NewEngine returns an Engine bound to a script host.
func NewEngine(host browser.ScriptHost) *Engine {
	return &Engine{host: host}
}

// scrapeResult is the page payload for a successful scrape response.
type scrapeResult struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// Ping checks whether the scrape helper is present and responsive in the tab.
func (e *Engine) Ping(ctx context.Context, tab *browser.TabHandle) error {
	msg, err := protocol.NewMessage(protocol.KindPing, nil)
	if err != nil {
		return err
	}
	resp, err := e.host.Transport(tab, Global).Request(ctx, msg)
	if err != nil {
		return err
	}
	return resp.Err()
}

// Inject installs the scrape helper into the tab.
func (e *Engine) Inject(ctx context.Context, tab *browser.TabHandle) error {
	return e.host.Inject(ctx, tab, Script)
}

// Scrape requests a scrape from the helper and extracts the payload from the
// returned HTML. Individual field misses degrade to zero values; only a hard
// failure of the whole exchange returns an error.
func (e *Engine) Scrape(ctx context.Context, tab *browser.TabHandle) (*Payload, error) {
	started := time.Now()

	msg, err := protocol.NewMessage(protocol.KindScrape, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.host.Transport(tab, Global).Request(ctx, msg)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var result scrapeResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode scrape result: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse scraped document: %w", err)
	}

	payload := Extract(doc)
	payload.ProfileURL = result.URL

	log.Debug("scrape complete",
		"url", result.URL,
		"experience", len(payload.WorkExperience),
		"education", len(payload.Education),
		"skills", len(payload.Skills),
		"raw_text", len(payload.RawText),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return payload, nil
}
