package scraper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/liimport/internal/browser"
	"github.com/go-scripts/liimport/internal/protocol"
)

type transportFunc func(ctx context.Context, msg protocol.Message) (protocol.Response, error)

func (f transportFunc) Request(ctx context.Context, msg protocol.Message) (protocol.Response, error) {
	return f(ctx, msg)
}

type fakeHost struct {
	respond  transportFunc
	globals  []string
	injected []string
}

func (h *fakeHost) Transport(_ *browser.TabHandle, global string) protocol.Transport {
	h.globals = append(h.globals, global)
	return h.respond
}

func (h *fakeHost) Inject(_ context.Context, _ *browser.TabHandle, src string) error {
	h.injected = append(h.injected, src)
	return nil
}

func okResponse(msg protocol.Message, body any) (protocol.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{OK: true, CorrelationID: msg.CorrelationID, Payload: payload}, nil
}

func TestEnginePing(t *testing.T) {
	host := &fakeHost{respond: func(_ context.Context, msg protocol.Message) (protocol.Response, error) {
		assert.Equal(t, protocol.KindPing, msg.Kind)
		return okResponse(msg, map[string]bool{"ready": true})
	}}
	engine := NewEngine(host)

	err := engine.Ping(context.Background(), &browser.TabHandle{ID: "t"})
	require.NoError(t, err)
	assert.Equal(t, []string{Global}, host.globals)
}

func TestEnginePingPropagatesNoReceiver(t *testing.T) {
	host := &fakeHost{respond: func(context.Context, protocol.Message) (protocol.Response, error) {
		return protocol.Response{}, protocol.ErrNoReceiver
	}}
	engine := NewEngine(host)

	err := engine.Ping(context.Background(), &browser.TabHandle{ID: "t"})
	assert.ErrorIs(t, err, protocol.ErrNoReceiver)
}

func TestEngineInjectInstallsScript(t *testing.T) {
	host := &fakeHost{}
	engine := NewEngine(host)

	require.NoError(t, engine.Inject(context.Background(), &browser.TabHandle{ID: "t"}))
	require.Len(t, host.injected, 1)
	assert.Equal(t, Script, host.injected[0])
}

func TestEngineScrapeExtractsPayload(t *testing.T) {
	host := &fakeHost{respond: func(_ context.Context, msg protocol.Message) (protocol.Response, error) {
		assert.Equal(t, protocol.KindScrape, msg.Kind)
		return okResponse(msg, scrapeResult{
			URL:  "https://www.linkedin.com/in/janedoe",
			HTML: profileFixture,
		})
	}}
	engine := NewEngine(host)

	payload, err := engine.Scrape(context.Background(), &browser.TabHandle{ID: "t"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", payload.ProfileURL)
	assert.Equal(t, "Jane", payload.FirstName)
	assert.Len(t, payload.WorkExperience, 2)
}

func TestEngineScrapeSurfacesPageError(t *testing.T) {
	host := &fakeHost{respond: func(_ context.Context, msg protocol.Message) (protocol.Response, error) {
		return protocol.Response{CorrelationID: msg.CorrelationID, Error: "scroll interrupted"}, nil
	}}
	engine := NewEngine(host)

	_, err := engine.Scrape(context.Background(), &browser.TabHandle{ID: "t"})
	assert.ErrorContains(t, err, "scroll interrupted")
}
