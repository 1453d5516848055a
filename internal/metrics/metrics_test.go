package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/iata-code-fetcher/internal/crawler"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://WWW.IATA.org/PublicationDetails/Search/", "www.iata.org"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "2xx", StatusClass(200))
	require.Equal(t, "5xx", StatusClass(503))
	require.Equal(t, "error", StatusClass(0))
}

type stubGetter struct {
	page crawler.Page
	err  error
}

func (s stubGetter) Get(context.Context, string) (crawler.Page, error) {
	return s.page, s.err
}

func TestInstrumentGetter(t *testing.T) {
	Init()
	const target = "https://metrics-test.example/search"

	ok := InstrumentGetter(stubGetter{page: crawler.Page{StatusCode: 200, Body: []byte("12345")}})
	_, err := ok.Get(context.Background(), target)
	require.NoError(t, err)

	failing := InstrumentGetter(stubGetter{err: errors.New("refused")})
	_, err = failing.Get(context.Background(), target)
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("metrics-test.example", "2xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("metrics-test.example", "error")))
	require.Equal(t, 5.0, testutil.ToFloat64(fetchBytesTotal.WithLabelValues("metrics-test.example")))
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	Init()
	ObserveRateLimitDelay(200 * time.Millisecond)

	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok\n", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Contains(t, string(body), "iata_rate_limit_delay_seconds")

	resp, err = http.Get(ts.URL + "/missing")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), 2.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404")), 1.0)
}

func TestServerStartAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Shutdown(context.Background()))

	bad := NewServer("256.0.0.1:bad", nil)
	require.Error(t, bad.Start())
}

func TestRouterMountsExtraRoutes(t *testing.T) {
	ts := httptest.NewServer(Router(func(r chi.Router) {
		r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "pong", string(body))
}
