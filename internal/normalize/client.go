package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/go-scripts/liimport/internal/scraper"
)

// importPath is the normalization endpoint, relative to the resolved API
// base.
const importPath = "/api/ai/import-linkedin"

// The API rate-limits per address on a fixed 10-per-60s window; the client
// paces itself under that so a session never burns its budget on 429s.
const (
	windowRequests = 10
	window         = 60 * time.Second
)

var (
	// ErrBadRequest maps the API's 400 validation failures.
	ErrBadRequest = errors.New("normalization rejected the payload")
	// ErrUnauthorized maps 401 auth failures.
	ErrUnauthorized = errors.New("normalization auth failed")
	// ErrRateLimited maps 429 responses.
	ErrRateLimited = errors.New("normalization rate limited")
	// ErrServer maps 500 server/configuration errors.
	ErrServer = errors.New("normalization server error")
)

// Options carries the optional per-request knobs the API accepts as headers.
type Options struct {
	Token        string
	Model        string
	ProviderKeys map[string]string
}

// Client talks to the external normalization API.
type Client struct {
	hc      *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient builds a client for the given API base address.
func NewClient(baseURL string) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 120 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(window/windowRequests), 1),
	}
}

type apiResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Normalize forwards a scrape payload and returns the structured resume
// profile from the API's result field. Any non-2xx status, malformed body or
// missing result is an error; the client never retries on its own.
func (c *Client) Normalize(ctx context.Context, payload *scraper.Payload, opts Options) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+importPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	if opts.Model != "" {
		req.Header.Set("X-Model", opts.Model)
	}
	for provider, key := range opts.ProviderKeys {
		req.Header.Set("X-Provider-Key-"+provider, key)
	}

	started := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send normalization request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read normalization response: %w", err)
	}

	var decoded apiResponse
	if jsonErr := json.Unmarshal(raw, &decoded); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("malformed normalization response: %w", jsonErr)
	}

	log.Debug("normalization response",
		"status", resp.StatusCode,
		"elapsed", time.Since(started).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, decoded.Error)
	}
	if len(decoded.Result) == 0 {
		return nil, errors.New("normalization response missing result")
	}
	return decoded.Result, nil
}

func statusError(status int, apiError string) error {
	var base error
	switch status {
	case http.StatusBadRequest:
		base = ErrBadRequest
	case http.StatusUnauthorized:
		base = ErrUnauthorized
	case http.StatusTooManyRequests:
		base = ErrRateLimited
	case http.StatusInternalServerError:
		base = ErrServer
	default:
		base = fmt.Errorf("unexpected status %d", status)
	}
	if apiError != "" {
		return fmt.Errorf("%w: %s", base, apiError)
	}
	return base
}
