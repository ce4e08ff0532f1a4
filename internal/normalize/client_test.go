package normalize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/liimport/internal/scraper"
)

func testPayload() *scraper.Payload {
	p := scraper.NewPayload()
	p.FirstName = "Jane"
	p.LastName = "Doe"
	p.RawText = "Jane Doe, Senior Engineer at Acme Corp"
	return p
}

func newTestServer(t *testing.T, status int, body string, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected application/json, got %s", got)
		}
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestNormalizeSuccess(t *testing.T) {
	var gotBody map[string]any
	srv := newTestServer(t, http.StatusOK, `{"result":{"first_name":"Jane"}}`, func(r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "fast-model", r.Header.Get("X-Model"))
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Normalize(context.Background(), testPayload(), Options{
		Token: "secret",
		Model: "fast-model",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"Jane"}`, string(result))

	// The payload always carries the source discriminator and present list
	// fields.
	assert.Equal(t, "linkedin", gotBody["source"])
	assert.NotNil(t, gotBody["work_experience"])
	assert.NotNil(t, gotBody["skills"])
}

func TestNormalizeStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServer},
	}
	for _, tc := range cases {
		srv := newTestServer(t, tc.status, `{"error":"nope"}`, nil)
		client := NewClient(srv.URL)

		_, err := client.Normalize(context.Background(), testPayload(), Options{})
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.Contains(t, err.Error(), "nope")
		srv.Close()
	}
}

func TestNormalizeMissingResult(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"something":"else"}`, nil)
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Normalize(context.Background(), testPayload(), Options{})
	assert.ErrorContains(t, err, "missing result")
}

func TestNormalizeMalformedBody(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{not json`, nil)
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Normalize(context.Background(), testPayload(), Options{})
	assert.ErrorContains(t, err, "malformed")
}
