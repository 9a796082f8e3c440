package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func serveJSON(t *testing.T, check func(r *http.Request), resp response) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LocateRegion_Success(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request) {
		assert.Contains(t, r.URL.Path, "-97.743100,30.267200")
		assert.Equal(t, "region", r.URL.Query().Get("types"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
	}, response{Features: []feature{{
		ID:         "region.9748336",
		PlaceName:  "Texas, United States",
		Properties: properties{ShortCode: "US-TX"},
	}}})

	c := testClient(srv.URL)
	code, err := c.LocateRegion(context.Background(), 30.2672, -97.7431)
	require.NoError(t, err)

	assert.Equal(t, "TX", code)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RegionLookups.WithLabelValues("success")), 0)
}

func TestClient_ResolvePlace_UsesEnclosingRegion(t *testing.T) {
	srv := serveJSON(t, func(r *http.Request) {
		assert.Contains(t, r.URL.Path, "Tulsa")
	}, response{Features: []feature{{
		ID:        "place.7673410",
		PlaceName: "Tulsa, Oklahoma, United States",
		Context: []ctxEntry{
			{ID: "district.123"},
			{ID: "region.9730314", ShortCode: "US-ok"},
			{ID: "country.8940", ShortCode: "us"},
		},
	}}})

	c := testClient(srv.URL)
	code, err := c.ResolvePlace(context.Background(), "Tulsa")
	require.NoError(t, err)
	assert.Equal(t, "OK", code)
}

func TestClient_NoResults(t *testing.T) {
	srv := serveJSON(t, nil, response{Features: []feature{}})

	c := testClient(srv.URL)
	code, err := c.ResolvePlace(context.Background(), "NONEXISTENT")
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RegionLookups.WithLabelValues("empty")), 0)
}

func TestClient_FeatureWithoutRegion(t *testing.T) {
	srv := serveJSON(t, nil, response{Features: []feature{{ID: "country.8940", PlaceName: "United States"}}})

	code, err := testClient(srv.URL).LocateRegion(context.Background(), 39.8, -98.5)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := &Client{
		token:      "bad-token",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    srv.URL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := c.ResolvePlace(context.Background(), "Austin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RegionLookups.WithLabelValues("error")), 0)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 50 * time.Millisecond},
		baseURL:    srv.URL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := c.LocateRegion(context.Background(), 30.2672, -97.7431)
	require.Error(t, err)
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "TX", stateCode("US-TX"))
	assert.Equal(t, "PR", stateCode("us-pr"))
	assert.Empty(t, stateCode("us"))
	assert.Empty(t, stateCode(""))
}
