// Package geocode resolves free-text addresses to coordinates via the
// Google Geocoding API, with an optional local SQLite result cache.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Result is a geocoding outcome. Matched is false when the provider
// returned no usable location; that is not an error.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Matched   bool    `json:"matched"`
}

// Client geocodes addresses. Available reports whether the client is
// configured; an unconfigured geocoder degrades features, it never fails
// the caller.
type Client interface {
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
}

// Option configures the Google client.
type Option func(*googleClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *googleClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *googleClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second (default 10).
func WithRateLimit(rps float64) Option {
	return func(c *googleClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type googleClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Geocoding client. An empty API key yields a
// client whose Available() is false.
func NewClient(apiKey string, opts ...Option) Client {
	c := &googleClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *googleClient) Available() bool { return c.apiKey != "" }

type googleResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

func (c *googleClient) Geocode(ctx context.Context, address string) (*Result, error) {
	if c.apiKey == "" {
		return nil, eris.New("geocode: api key not configured")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return &Result{Matched: false}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return &Result{Matched: false}, nil
	}

	loc := parsed.Results[0].Geometry.Location
	return &Result{Latitude: loc.Lat, Longitude: loc.Lng, Matched: true}, nil
}
