package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

var _ domain.RegionLocator = (*Client)(nil)

// Client implements domain.RegionLocator using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox region locator client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// LocateRegion returns the region code for the coordinates.
func (c *Client) LocateRegion(ctx context.Context, lat, lon float64) (string, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"region"},
		"country":      {"us"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
}

// ResolvePlace returns the region code for a place or region name.
func (c *Client) ResolvePlace(ctx context.Context, place string) (string, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(place))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"region,place,locality"},
		"country":      {"us"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "forward")
}

func (c *Client) doRequest(ctx context.Context, fullURL, source string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RegionAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RegionLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%s region lookup: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RegionLookups.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		c.metrics.RegionLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		c.metrics.RegionLookups.WithLabelValues("empty").Inc()
		return "", nil
	}

	code := mapboxResp.Features[0].regionCode()
	if code == "" {
		c.metrics.RegionLookups.WithLabelValues("empty").Inc()
		c.logger.Debug("mapbox feature has no region code", "source", source, "place", mapboxResp.Features[0].PlaceName)
		return "", nil
	}
	c.metrics.RegionLookups.WithLabelValues("success").Inc()
	return code, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"` // e.g. "region.9748336" or "place.7673410"
	PlaceName  string     `json:"place_name"`
	Properties properties `json:"properties"`
	Context    []ctxEntry `json:"context"`
}

type properties struct {
	ShortCode string `json:"short_code"` // "US-TX" on region features
}

type ctxEntry struct {
	ID        string `json:"id"`
	ShortCode string `json:"short_code"`
}

// regionCode returns the state code of the feature itself when it is a
// region, or of its enclosing region otherwise.
func (f feature) regionCode() string {
	if strings.HasPrefix(f.ID, "region.") {
		return stateCode(f.Properties.ShortCode)
	}
	for _, c := range f.Context {
		if strings.HasPrefix(c.ID, "region.") {
			return stateCode(c.ShortCode)
		}
	}
	return ""
}

// stateCode turns "US-TX" into "TX".
func stateCode(shortCode string) string {
	_, code, ok := strings.Cut(shortCode, "-")
	if !ok {
		return ""
	}
	return strings.ToUpper(code)
}
