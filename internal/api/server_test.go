package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lox/sgweather/internal/api"
	"github.com/lox/sgweather/internal/dashboard"
	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/geocode"
	"github.com/lox/sgweather/internal/models"
	"github.com/lox/sgweather/internal/store"

	_ "modernc.org/sqlite"
)

var sgt = time.FixedZone("SGT", 8*3600)

func ptr(f float64) *float64 { return &f }

type fakeSource struct {
	mu  sync.Mutex
	err error
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) failing() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSource) FetchTwoHour(ctx context.Context) ([]models.ForecastPoint, error) {
	if err := f.failing(); err != nil {
		return nil, err
	}
	start := time.Date(2026, 10, 19, 14, 30, 0, 0, sgt)
	return []models.ForecastPoint{
		{LocationName: "Ang Mo Kio", Latitude: 1.375, Longitude: 103.839, Text: "Thundery Showers", PeriodStart: start, PeriodEnd: start.Add(2 * time.Hour)},
		{LocationName: "Changi", Latitude: 1.357, Longitude: 103.987, Text: "Partly Cloudy (Day)", PeriodStart: start, PeriodEnd: start.Add(2 * time.Hour)},
	}, nil
}

func (f *fakeSource) FetchTwentyFourHour(ctx context.Context) (*models.DayPeriodForecast, error) {
	if err := f.failing(); err != nil {
		return nil, err
	}
	return &models.DayPeriodForecast{
		General: models.GeneralForecast{
			Text:        "Thundery Showers",
			Temperature: models.Range{Low: ptr(25), High: ptr(33)},
			Humidity:    models.Range{Low: ptr(60), High: ptr(95)},
		},
		Periods: []models.PeriodGroup{
			{Label: "Midday to 6 pm 19 Oct", Regions: []models.RegionForecast{
				{Region: "east", Text: "Showers"},
				{Region: "west", Text: "Cloudy"},
			}},
		},
	}, nil
}

func (f *fakeSource) FetchFourDay(ctx context.Context) (models.DayOutlook, error) {
	if err := f.failing(); err != nil {
		return models.DayOutlook{}, err
	}
	return models.DayOutlook{Days: []models.OutlookDay{
		{Label: "Tuesday", Text: "Fair"},
		{Label: "Wednesday", Text: "Showers"},
	}}, nil
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := store.New(db, time.UTC)
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestServer(t *testing.T, st *store.Store, src dashboard.Source) (*api.Server, string) {
	t.Helper()
	dir := t.TempDir()
	return api.NewServer(st, src, "8080", sgt, api.Options{ImageDir: dir}), dir
}

// browser replays the client cookie like a real browser would.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == api.ClientCookie {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest("GET", path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := b.do(req)
	if w.Code != http.StatusSeeOther {
		b.t.Fatalf("POST %s: expected 303, got %d: %s", path, w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		b.t.Fatalf("POST %s: redirected to %q", path, loc)
	}
	return w
}

func (b *browser) mapScene() api.MapResponse {
	b.t.Helper()
	w := b.get("/api/map")
	if w.Code != http.StatusOK {
		b.t.Fatalf("GET /api/map: %d", w.Code)
	}
	var resp api.MapResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		b.t.Fatalf("decode map: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv, dir := newTestServer(t, setupTestStore(t), &fakeSource{})
	if err := os.WriteFile(filepath.Join(dir, "banner_haze.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var health api.HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q", health.Status)
	}
	if len(health.Banners) != 1 || health.Banners[0] != "haze" {
		t.Errorf("banners = %v, want [haze]", health.Banners)
	}
}

func TestIndexIssuesClientCookie(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}

	w := b.get("/")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if b.cookie == nil {
		t.Fatal("expected sgw_client cookie")
	}
	body := w.Body.String()
	for _, want := range []string{"Ang Mo Kio", "Forecast Period: 02:30 PM - 04:30 PM", `class="areas compact"`, "Compact View", `alt="Thundery Showers weather"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
	if !strings.Contains(body, `<section id="section-24hr" class="hidden">`) {
		t.Error("24-hour section should be hidden initially")
	}

	first := b.cookie.Value
	b.get("/")
	if b.cookie.Value != first {
		t.Error("cookie should be stable across requests")
	}
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSwitchHorizon(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")

	b.post("/actions/horizon", url.Values{"horizon": {"4day"}})
	body := b.get("/").Body.String()
	if !strings.Contains(body, `<section id="section-4day" class="">`) {
		t.Error("4-day section should be visible")
	}
	if !strings.Contains(body, `<section id="section-2hr" class="hidden">`) {
		t.Error("2-hour section should be hidden")
	}
	if !strings.Contains(body, "Wednesday") {
		t.Error("expected 4-day cards")
	}

	req := httptest.NewRequest("POST", "/actions/horizon", strings.NewReader("horizon=weekly"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := b.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("unknown horizon: expected 400, got %d", w.Code)
	}
}

func TestFetchFailureShowsBanner(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	srv, _ := newTestServer(t, setupTestStore(t), src)
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")

	src.setErr(errors.New("upstream down"))
	b.post("/actions/horizon", url.Values{"horizon": {"2hr"}})
	body := b.get("/").Body.String()
	if !strings.Contains(body, dashboard.ErrorMessage) {
		t.Error("expected error banner")
	}
	if !strings.Contains(body, "Ang Mo Kio") {
		t.Error("previous 2-hour content should be kept")
	}
}

func TestLayoutToggle(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")

	b.post("/actions/layout", nil)
	body := b.get("/").Body.String()
	if !strings.Contains(body, `class="areas "`) || !strings.Contains(body, "Standard View") {
		t.Error("expected standard layout after toggle")
	}
}

func TestThemePersistsAcrossServers(t *testing.T) {
	t.Parallel()
	st := setupTestStore(t)
	srv, _ := newTestServer(t, st, &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")
	b.post("/actions/theme", nil)

	if body := b.get("/").Body.String(); !strings.Contains(body, `<body class="dark-mode">`) {
		t.Fatal("expected dark mode")
	}

	// A restarted server has no sessions but the same preferences.
	restarted, _ := newTestServer(t, st, &fakeSource{})
	b2 := &browser{t: t, handler: restarted.Handler(), cookie: b.cookie}
	if body := b2.get("/").Body.String(); !strings.Contains(body, `<body class="dark-mode">`) {
		t.Error("dark mode should be restored from preferences")
	}

	other := &browser{t: t, handler: restarted.Handler()}
	if body := other.get("/").Body.String(); !strings.Contains(body, `<body class="">`) {
		t.Error("other clients keep the light theme")
	}
}

func TestMapToggleAndScene(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")

	if resp := b.mapScene(); resp.Visible || resp.Scene != nil {
		t.Fatalf("map should start hidden and uncreated: %+v", resp)
	}

	b.post("/actions/map", nil)
	resp := b.mapScene()
	if !resp.Visible || resp.Scene == nil {
		t.Fatal("expected visible map with scene")
	}
	if len(resp.Scene.Layers) != 2 {
		t.Errorf("expected 2 markers, got %d", len(resp.Scene.Layers))
	}
	if resp.Scene.Zoom != 11 {
		t.Errorf("zoom = %d", resp.Scene.Zoom)
	}

	// Hide and show again: still one marker per area.
	b.post("/actions/map", nil)
	b.post("/actions/map", nil)
	if n := len(b.mapScene().Scene.Layers); n != 2 {
		t.Errorf("expected 2 markers after re-show, got %d", n)
	}

	if body := b.get("/").Body.String(); !strings.Contains(body, "area-card clickable") {
		t.Error("cards should be clickable with the map shown")
	}

	b.post("/actions/area", url.Values{"name": {"Changi"}})
	scene := b.mapScene().Scene
	if scene.Zoom != 14 || scene.Center.Lat != 1.357 {
		t.Errorf("expected focus on Changi, got %+v zoom %d", scene.Center, scene.Zoom)
	}
	open := 0
	for _, l := range scene.Layers {
		if l.Open {
			open++
			if !strings.Contains(l.Popup, "Changi") {
				t.Errorf("wrong popup opened: %q", l.Popup)
			}
		}
	}
	if open != 1 {
		t.Errorf("expected one open popup, got %d", open)
	}
}

func TestLocate(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")

	// First press with the map hidden only reveals it.
	b.post("/actions/locate", nil)
	resp := b.mapScene()
	if !resp.Visible || len(resp.Scene.Layers) != 2 {
		t.Fatalf("expected map revealed with 2 markers, got %+v", resp)
	}

	b.post("/actions/locate", url.Values{"status": {"ok"}, "lat": {"1.30"}, "lng": {"103.85"}, "accuracy": {"20"}})
	scene := b.mapScene().Scene
	if len(scene.Layers) != 3 {
		t.Fatalf("expected user marker added, got %d layers", len(scene.Layers))
	}
	if scene.Zoom != 13 || scene.Center.Lat != 1.30 {
		t.Errorf("expected view on user, got %+v zoom %d", scene.Center, scene.Zoom)
	}

	b.post("/actions/locate", url.Values{"status": {"error"}, "message": {"User denied Geolocation"}})
	body := b.get("/").Body.String()
	if !strings.Contains(body, "Unable to get your location") {
		t.Error("expected failure alert")
	}
	if !strings.Contains(body, "📍 My Location") {
		t.Error("locate button should be reset")
	}
	if n := len(b.mapScene().Scene.Layers); n != 3 {
		t.Errorf("user marker should survive a failed locate, got %d layers", n)
	}

	// Alerts are shown once.
	if body := b.get("/").Body.String(); strings.Contains(body, "Unable to get your location") {
		t.Error("alert should not repeat")
	}

	b.post("/actions/locate", url.Values{"status": {"unsupported"}})
	if body := b.get("/").Body.String(); !strings.Contains(body, "Geolocation is not supported") {
		t.Error("expected unsupported alert")
	}
}

func TestAPIForecast(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	srv, _ := newTestServer(t, setupTestStore(t), src)
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast/24hr", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var day models.DayPeriodForecast
	if err := json.NewDecoder(w.Body).Decode(&day); err != nil {
		t.Fatal(err)
	}
	if day.General.Text != "Thundery Showers" || len(day.Periods) != 1 {
		t.Errorf("unexpected forecast: %+v", day)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast/weekly", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown horizon: expected 404, got %d", w.Code)
	}

	src.setErr(errors.New("boom"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/forecast/2hr", nil))
	if w.Code != http.StatusBadGateway {
		t.Errorf("failing source: expected 502, got %d", w.Code)
	}
}

func TestAPINearest(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/nearest?lat=1.3644&lon=103.9915", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var loc forecast.Location
	if err := json.NewDecoder(w.Body).Decode(&loc); err != nil {
		t.Fatal(err)
	}
	if loc.Area != "Changi" || loc.Region != "east" {
		t.Errorf("got %+v", loc)
	}
	if len(loc.Periods) != 1 || loc.Periods[0].Forecast != "Showers" {
		t.Errorf("periods = %+v", loc.Periods)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/nearest?lat=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// fakeOneMap answers every search with Changi Airport, or nothing for "nowhere".
func fakeOneMap(t *testing.T) *geocode.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("searchVal") == "nowhere" {
			w.Write([]byte(`{"found":0,"results":[]}`))
			return
		}
		w.Write([]byte(`{"found":1,"results":[{"SEARCHVAL":"CHANGI AIRPORT","ADDRESS":"60 AIRPORT BOULEVARD SINGAPORE 819643","LATITUDE":"1.3644","LONGITUDE":"103.9915"}]}`))
	}))
	t.Cleanup(srv.Close)
	return geocode.NewClient(srv.Client(), geocode.Endpoints{OneMap: srv.URL})
}

type fakeAir struct {
	err error
}

func (f *fakeAir) FetchAirQuality(ctx context.Context, feed models.Horizon) (models.AirQuality, error) {
	if f.err != nil {
		return models.AirQuality{}, f.err
	}
	return models.AirQuality{Feed: feed, Regions: []models.AirReading{
		{Region: "east", Values: map[string]float64{"psi_twenty_four_hourly": 48}},
		{Region: "north", Values: map[string]float64{"psi_twenty_four_hourly": 55}},
	}}, nil
}

func TestAPINearestByAddress(t *testing.T) {
	t.Parallel()
	srv := api.NewServer(setupTestStore(t), &fakeSource{}, "8080", sgt, api.Options{
		ImageDir: t.TempDir(),
		Geocoder: fakeOneMap(t),
		Air:      &fakeAir{},
	})
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/nearest?q="+url.QueryEscape("819643"), nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	var resp api.NearestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Area != "Changi" || resp.Region != "east" {
		t.Errorf("got %+v", resp.Location)
	}
	if resp.Address == nil || resp.Address.Address != "60 AIRPORT BOULEVARD SINGAPORE 819643" || resp.Address.Source != "onemap" {
		t.Errorf("address = %+v", resp.Address)
	}
	if resp.Air == nil || resp.Air.Region != "east" || resp.Air.Values["psi_twenty_four_hourly"] != 48 {
		t.Errorf("air = %+v", resp.Air)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/nearest?q=nowhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown address: expected 404, got %d", w.Code)
	}
}

func TestAPINearestAddressNotConfigured(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/nearest?q=Bedok", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestAPIAir(t *testing.T) {
	t.Parallel()
	air := &fakeAir{}
	srv := api.NewServer(setupTestStore(t), &fakeSource{}, "8080", sgt, api.Options{ImageDir: t.TempDir(), Air: air})
	h := srv.Handler()

	tests := []struct {
		path   string
		status int
		region string
	}{
		{"/api/air/psi", 200, ""},
		{"/api/air/pm25?lat=1.436&lon=103.786", 200, "north"},
		{"/api/air/psi?lat=1.35&lon=103.70", 404, ""},
		{"/api/air/psi?lat=x&lon=1", 400, ""},
		{"/api/air/2hr", 404, ""},
		{"/api/air/ozone", 404, ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
		if w.Code != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.status, w.Code)
			continue
		}
		if tt.region != "" {
			var reading models.AirReading
			if err := json.NewDecoder(w.Body).Decode(&reading); err != nil {
				t.Fatal(err)
			}
			if reading.Region != tt.region {
				t.Errorf("%s: region = %q", tt.path, reading.Region)
			}
		}
	}

	air.err = errors.New("upstream down")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/air/psi", nil))
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestBanner(t *testing.T) {
	t.Parallel()
	srv, dir := newTestServer(t, setupTestStore(t), &fakeSource{})
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/banner.png?c=rain", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no cache and no generator: expected 503, got %d", w.Code)
	}

	if err := os.WriteFile(filepath.Join(dir, "banner_rain.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/banner.png?c=rain", nil))
	if w.Code != 200 || w.Body.String() != "png" {
		t.Fatalf("expected cached banner, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	// Other categories fall back to any cached banner.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/banner.png?c=haze", nil))
	if w.Code != 200 {
		t.Errorf("expected fallback banner, got %d", w.Code)
	}
}

func TestOGImageFallback(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/og-image.png", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "\x89PNG") {
		t.Error("expected PNG body")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, setupTestStore(t), &fakeSource{})
	b := &browser{t: t, handler: srv.Handler()}
	b.get("/")

	w := b.get("/metrics")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "sgweather_active_sessions") {
		t.Error("expected session gauge in metrics output")
	}
}
