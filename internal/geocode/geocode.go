// Package geocode resolves Singapore street addresses and postal codes to
// coordinates, asking OneMap first and Nominatim when OneMap has no match.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/lox/sgweather/internal/httputil"
)

var (
	ErrEmptyQuery = errors.New("empty address")
	ErrNotFound   = errors.New("address not found")
)

// Endpoints are the search URLs of the two providers. An empty URL skips
// that provider.
type Endpoints struct {
	OneMap    string
	Nominatim string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		OneMap:    "https://www.onemap.gov.sg/api/common/elastic/search",
		Nominatim: "https://nominatim.openstreetmap.org/search",
	}
}

// Result is a resolved position.
type Result struct {
	Query   string  `json:"query"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Source  string  `json:"source"`
}

type Client struct {
	client    *http.Client
	endpoints Endpoints
	// Nominatim's usage policy allows one request per second.
	nominatimLimit *rate.Limiter
}

func NewClient(client *http.Client, endpoints Endpoints) *Client {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Client{
		client:         client,
		endpoints:      endpoints,
		nominatimLimit: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Geocode resolves an address or six-digit postal code. It returns
// ErrNotFound when neither provider knows the address, and the providers'
// errors joined when both failed outright.
func (c *Client) Geocode(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	var errs []error
	if c.endpoints.OneMap != "" {
		res, err := c.oneMap(ctx, query)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("onemap: %w", err))
		}
	}
	if c.endpoints.Nominatim != "" {
		res, err := c.nominatim(ctx, query)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("nominatim: %w", err))
		}
	}
	if len(errs) > 0 {
		return Result{}, errors.Join(errs...)
	}
	return Result{}, ErrNotFound
}

func (c *Client) oneMap(ctx context.Context, query string) (Result, error) {
	params := url.Values{
		"searchVal":      {query},
		"returnGeom":     {"Y"},
		"getAddrDetails": {"Y"},
		"pageNum":        {"1"},
	}
	body, err := c.get(ctx, c.endpoints.OneMap, params)
	if err != nil {
		return Result{}, err
	}

	hit := gjson.GetBytes(body, "results.0")
	lat, errLat := parseCoord(hit.Get("LATITUDE"))
	lon, errLon := parseCoord(hit.Get("LONGITUDE"))
	if !hit.Exists() || errLat != nil || errLon != nil {
		return Result{}, ErrNotFound
	}
	address := hit.Get("ADDRESS").String()
	if address == "" {
		address = hit.Get("SEARCHVAL").String()
	}
	return Result{Query: query, Address: address, Lat: lat, Lon: lon, Source: "onemap"}, nil
}

func (c *Client) nominatim(ctx context.Context, query string) (Result, error) {
	if err := c.nominatimLimit.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit wait: %w", err)
	}
	params := url.Values{
		"q":            {query},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {"sg"},
	}
	body, err := c.get(ctx, c.endpoints.Nominatim, params)
	if err != nil {
		return Result{}, err
	}

	hit := gjson.GetBytes(body, "0")
	lat, errLat := parseCoord(hit.Get("lat"))
	lon, errLon := parseCoord(hit.Get("lon"))
	if !hit.Exists() || errLat != nil || errLon != nil {
		return Result{}, ErrNotFound
	}
	return Result{Query: query, Address: hit.Get("display_name").String(), Lat: lat, Lon: lon, Source: "nominatim"}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed json")
	}
	return body, nil
}

// parseCoord accepts coordinates as numbers or numeric strings; both
// providers send strings.
func parseCoord(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), nil
	case gjson.String:
		return strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
	}
	return 0, errors.New("no coordinate")
}
