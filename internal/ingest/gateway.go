package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/lox/sgweather/internal/httputil"
	"github.com/lox/sgweather/internal/metrics"
	"github.com/lox/sgweather/internal/models"
)

const apiBase = "https://api-open.data.gov.sg/v2/real-time/api"

// ErrMalformedJSON is returned when an endpoint answers with a body that is
// not JSON at all. Well-formed JSON of an unexpected shape is not an error.
var ErrMalformedJSON = errors.New("malformed json")

// Endpoints are the fixed URLs of the three forecast horizons and the two
// air-quality feeds.
type Endpoints struct {
	TwoHour        string
	TwentyFourHour string
	FourDay        string
	PSI            string
	PM25           string
}

// DefaultEndpoints returns the data.gov.sg real-time endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		TwoHour:        apiBase + "/two-hr-forecast",
		TwentyFourHour: apiBase + "/twenty-four-hr-forecast",
		FourDay:        apiBase + "/four-day-outlook",
		PSI:            apiBase + "/psi",
		PM25:           apiBase + "/pm25",
	}
}

// URL returns the endpoint for a horizon.
func (e Endpoints) URL(h models.Horizon) string {
	switch h {
	case models.Horizon2Hour:
		return e.TwoHour
	case models.Horizon24Hour:
		return e.TwentyFourHour
	case models.Horizon4Day:
		return e.FourDay
	case models.FeedPSI:
		return e.PSI
	case models.FeedPM25:
		return e.PM25
	default:
		return ""
	}
}

// Archive receives a record of every upstream call.
type Archive interface {
	RecordFetch(ctx context.Context, rec models.FetchRecord) error
}

// Gateway fetches one horizon per call and normalizes the response. Every call
// goes to the network; nothing is cached and nothing is retried.
type Gateway struct {
	client    *http.Client
	endpoints Endpoints
	limiter   *rate.Limiter
	archive   Archive
}

func NewGateway(client *http.Client, endpoints Endpoints) *Gateway {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Gateway{
		client:    client,
		endpoints: endpoints,
	}
}

// SetArchive configures where fetch records and raw payloads are kept.
func (g *Gateway) SetArchive(a Archive) {
	g.archive = a
}

// SetRateLimit caps outbound requests to rps per second. A non-positive rps
// removes the limit.
func (g *Gateway) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		g.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

func (g *Gateway) FetchTwoHour(ctx context.Context) ([]models.ForecastPoint, error) {
	body, rec, err := g.get(ctx, models.Horizon2Hour)
	if err != nil {
		g.finish(ctx, rec, 0, err)
		return nil, err
	}
	points := NormalizeTwoHour(body)
	rec.QualityFlags = ValidateTwoHour(points)
	g.finish(ctx, rec, len(points), nil)
	return points, nil
}

func (g *Gateway) FetchTwentyFourHour(ctx context.Context) (*models.DayPeriodForecast, error) {
	body, rec, err := g.get(ctx, models.Horizon24Hour)
	if err != nil {
		g.finish(ctx, rec, 0, err)
		return nil, err
	}
	data := NormalizeTwentyFourHour(body)
	count := 0
	if data != nil {
		count = len(data.Periods)
	}
	rec.QualityFlags = ValidateTwentyFourHour(data)
	g.finish(ctx, rec, count, nil)
	return data, nil
}

func (g *Gateway) FetchFourDay(ctx context.Context) (models.DayOutlook, error) {
	body, rec, err := g.get(ctx, models.Horizon4Day)
	if err != nil {
		g.finish(ctx, rec, 0, err)
		return models.DayOutlook{}, err
	}
	outlook := NormalizeFourDay(body)
	rec.QualityFlags = ValidateFourDay(outlook)
	g.finish(ctx, rec, len(outlook.Days), nil)
	return outlook, nil
}

// FetchAirQuality fetches one of the air-quality feeds.
func (g *Gateway) FetchAirQuality(ctx context.Context, feed models.Horizon) (models.AirQuality, error) {
	if !feed.IsAir() {
		return models.AirQuality{}, fmt.Errorf("not an air-quality feed: %q", feed)
	}
	body, rec, err := g.get(ctx, feed)
	if err != nil {
		g.finish(ctx, rec, 0, err)
		return models.AirQuality{}, err
	}
	q := NormalizeAirQuality(feed, body)
	rec.QualityFlags = ValidateAirQuality(q)
	g.finish(ctx, rec, len(q.Regions), nil)
	return q, nil
}

// Fetch dispatches to the horizon's fetch method and returns the normalized
// result as an untyped value, for callers that only serialize it.
func (g *Gateway) Fetch(ctx context.Context, h models.Horizon) (any, error) {
	switch h {
	case models.Horizon2Hour:
		return g.FetchTwoHour(ctx)
	case models.Horizon24Hour:
		return g.FetchTwentyFourHour(ctx)
	case models.Horizon4Day:
		return g.FetchFourDay(ctx)
	case models.FeedPSI, models.FeedPM25:
		return g.FetchAirQuality(ctx, h)
	default:
		return nil, fmt.Errorf("unknown horizon %q", h)
	}
}

func (g *Gateway) get(ctx context.Context, h models.Horizon) ([]byte, *models.FetchRecord, error) {
	url := g.endpoints.URL(h)
	rec := &models.FetchRecord{Horizon: h, Endpoint: url, StartedAt: time.Now().UTC()}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, rec, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, rec, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	metrics.UpstreamLatency.WithLabelValues(string(h)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, rec, fmt.Errorf("fetch %s: %w", h, err)
	}
	defer resp.Body.Close()
	rec.HTTPStatus = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rec, fmt.Errorf("read body: %w", err)
	}
	rec.ResponseSize = len(body)
	rec.Payload = body

	if resp.StatusCode != http.StatusOK {
		return nil, rec, fmt.Errorf("fetch %s: status %d: %s", h, resp.StatusCode, truncate(string(body), 200))
	}
	if !gjson.ValidBytes(body) {
		return nil, rec, fmt.Errorf("fetch %s: %w", h, ErrMalformedJSON)
	}
	return body, rec, nil
}

func (g *Gateway) finish(ctx context.Context, rec *models.FetchRecord, count int, err error) {
	rec.FinishedAt = time.Now().UTC()
	rec.RecordCount = count

	status := "ok"
	if err != nil {
		rec.Error = err.Error()
		switch {
		case errors.Is(err, ErrMalformedJSON):
			status = "parse_error"
		case rec.HTTPStatus != 0 && rec.HTTPStatus != http.StatusOK:
			status = "http_" + strconv.Itoa(rec.HTTPStatus)
		default:
			status = "transport_error"
		}
	}
	metrics.UpstreamFetchesTotal.WithLabelValues(string(rec.Horizon), status).Inc()
	if len(rec.QualityFlags) > 0 {
		log.Printf("ingest: %s quality flags: %v", rec.Horizon, rec.QualityFlags)
	}
	if err == nil {
		metrics.RecordsNormalized.WithLabelValues(string(rec.Horizon)).Add(float64(count))
	}

	if g.archive == nil {
		return
	}
	// The archive is best effort and never fails the fetch.
	if aerr := g.archive.RecordFetch(context.WithoutCancel(ctx), *rec); aerr != nil {
		log.Printf("ingest: archive %s fetch: %v", rec.Horizon, aerr)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Normalize parses a stored payload of horizon h the same way a live fetch
// would.
func Normalize(h models.Horizon, raw []byte) (any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrMalformedJSON
	}
	switch h {
	case models.Horizon2Hour:
		return NormalizeTwoHour(raw), nil
	case models.Horizon24Hour:
		return NormalizeTwentyFourHour(raw), nil
	case models.Horizon4Day:
		return NormalizeFourDay(raw), nil
	case models.FeedPSI, models.FeedPM25:
		return NormalizeAirQuality(h, raw), nil
	default:
		return nil, fmt.Errorf("unknown horizon %q", h)
	}
}
