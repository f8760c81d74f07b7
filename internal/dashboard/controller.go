// Package dashboard holds the per-session view state and runs every user
// action through fetch, render and map update.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/lox/sgweather/internal/mapview"
	"github.com/lox/sgweather/internal/metrics"
	"github.com/lox/sgweather/internal/models"
	"github.com/lox/sgweather/internal/render"
)

// DarkModeKey is the preference key of the theme flag.
const DarkModeKey = "darkMode"

// Source fetches and normalizes one horizon per call.
type Source interface {
	FetchTwoHour(ctx context.Context) ([]models.ForecastPoint, error)
	FetchTwentyFourHour(ctx context.Context) (*models.DayPeriodForecast, error)
	FetchFourDay(ctx context.Context) (models.DayOutlook, error)
}

// Preferences persist across sessions of the same client.
type Preferences interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

type Position struct {
	Lat      float64
	Lng      float64
	Accuracy float64
}

type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// LocateOptions are the options of every device locate request.
var LocateOptions = PositionOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   5 * time.Minute,
}

// ErrGeolocationUnsupported is returned by a Geolocator on platforms without
// location support.
var ErrGeolocationUnsupported = errors.New("geolocation not supported")

// Geolocator resolves the device position.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// Controller owns the ViewState of one dashboard session. Fetches run
// without the lock held; each carries a per-horizon token and a response
// is dropped if a newer request for the same horizon was issued meanwhile.
type Controller struct {
	mu       sync.Mutex
	source   Source
	prefs    Preferences
	renderer *render.Renderer

	state    models.ViewState
	page     Page
	tokens   map[models.Horizon]uint64
	inFlight int

	scene   *mapview.Scene
	adapter *mapview.Adapter
}

func NewController(source Source, prefs Preferences, renderer *render.Renderer) *Controller {
	state := models.NewViewState()
	c := &Controller{
		source:   source,
		prefs:    prefs,
		renderer: renderer,
		state:    state,
		tokens:   make(map[models.Horizon]uint64),
	}
	c.page = Page{
		ActiveTab:     state.ActiveHorizon,
		CompactLayout: state.CompactLayout,
		LayoutLabel:   layoutLabel(state.CompactLayout),
		MapVisible:    state.MapVisible,
		MapLabel:      mapLabel(state.MapVisible),
		DarkMode:      state.DarkMode,
		ThemeGlyph:    themeGlyph(state.DarkMode),
		LocateLabel:   LocateIdleLabel,
	}
	return c
}

// Init restores the theme preference and loads the initial horizon.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	c.loadThemePreference()
	h := c.state.ActiveHorizon
	c.mu.Unlock()
	return c.SwitchHorizon(ctx, h)
}

func (c *Controller) loadThemePreference() {
	if c.prefs == nil {
		return
	}
	v, ok, err := c.prefs.Get(DarkModeKey)
	if err != nil {
		log.Printf("dashboard: load theme preference: %v", err)
		return
	}
	if ok && v == "true" {
		c.setDarkMode(true)
	}
}

// SwitchHorizon activates h and loads it.
func (c *Controller) SwitchHorizon(ctx context.Context, h models.Horizon) error {
	if _, ok := models.ParseHorizon(string(h)); !ok {
		return fmt.Errorf("unknown horizon %q", h)
	}
	c.mu.Lock()
	c.state.ActiveHorizon = h
	c.page.ActiveTab = h
	c.mu.Unlock()
	return c.load(ctx, h)
}

// Reload fetches the active horizon again.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	h := c.state.ActiveHorizon
	c.mu.Unlock()
	return c.load(ctx, h)
}

type fetched struct {
	points  []models.ForecastPoint
	day     *models.DayPeriodForecast
	outlook models.DayOutlook
}

func (c *Controller) fetch(ctx context.Context, h models.Horizon) (fetched, error) {
	var (
		f   fetched
		err error
	)
	switch h {
	case models.Horizon2Hour:
		f.points, err = c.source.FetchTwoHour(ctx)
	case models.Horizon24Hour:
		f.day, err = c.source.FetchTwentyFourHour(ctx)
	case models.Horizon4Day:
		f.outlook, err = c.source.FetchFourDay(ctx)
	default:
		err = fmt.Errorf("unknown horizon %q", h)
	}
	return f, err
}

// load fetches h and renders it into its section. On failure the error
// banner is shown and the section keeps its previous content. The loading
// indicator is cleared once no fetch is outstanding.
func (c *Controller) load(ctx context.Context, h models.Horizon) error {
	c.mu.Lock()
	c.tokens[h]++
	token := c.tokens[h]
	c.inFlight++
	c.page.Loading = true
	c.page.Error = ""
	c.mu.Unlock()

	result, err := c.fetch(ctx, h)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		c.inFlight--
		c.page.Loading = c.inFlight > 0
	}()

	if c.tokens[h] != token {
		metrics.StaleResponsesDropped.WithLabelValues(string(h)).Inc()
		log.Printf("dashboard: dropping stale %s response", h)
		return nil
	}
	if err == nil {
		err = c.apply(h, result)
	}
	if err != nil {
		log.Printf("dashboard: load %s: %v", h, err)
		c.page.Error = ErrorMessage
		return err
	}
	return nil
}

// apply renders a fetched result. Called with c.mu held.
func (c *Controller) apply(h models.Horizon, f fetched) error {
	switch h {
	case models.Horizon2Hour:
		view, err := c.renderer.TwoHour(f.points, c.state)
		if err != nil {
			return err
		}
		c.state.LastRendered.TwoHour = f.points
		c.page.TwoHour = view
		if c.state.MapVisible && c.adapter != nil {
			c.adapter.ReplaceMarkers(view.Markers)
		}
	case models.Horizon24Hour:
		view, ok, err := c.renderer.TwentyFourHour(f.day, c.state)
		if err != nil {
			return err
		}
		if ok {
			c.state.LastRendered.TwentyFourHour = f.day
			c.page.TwentyFourHour = view
		}
	case models.Horizon4Day:
		view, err := c.renderer.FourDay(f.outlook, c.state)
		if err != nil {
			return err
		}
		outlook := f.outlook
		c.state.LastRendered.FourDay = &outlook
		c.page.FourDay = view
	}
	return nil
}

// ToggleLayout switches between compact and standard area cards.
func (c *Controller) ToggleLayout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CompactLayout = !c.state.CompactLayout
	c.page.CompactLayout = c.state.CompactLayout
	c.page.LayoutLabel = layoutLabel(c.state.CompactLayout)
}

// ToggleMap shows or hides the map. Showing it creates the map on first
// use, redraws markers from the last 2-hour result and fetches the 2-hour
// forecast again.
func (c *Controller) ToggleMap(ctx context.Context) error {
	c.mu.Lock()
	c.state.MapVisible = !c.state.MapVisible
	c.page.MapVisible = c.state.MapVisible
	c.page.MapLabel = mapLabel(c.state.MapVisible)
	if !c.state.MapVisible {
		c.mu.Unlock()
		return nil
	}

	if c.adapter == nil {
		c.scene = mapview.NewScene(mapview.SingaporeCenter, mapview.DefaultZoom)
		c.adapter = mapview.NewAdapter(c.scene)
	}
	c.adapter.InvalidateSize()
	if cached := c.state.LastRendered.TwoHour; cached != nil {
		markers := make([]mapview.Marker, 0, len(cached))
		for _, p := range cached {
			markers = append(markers, render.MarkerFor(p))
		}
		c.adapter.ReplaceMarkers(markers)
	}
	c.mu.Unlock()

	return c.load(ctx, models.Horizon2Hour)
}

// ToggleTheme flips dark mode and persists the choice. The save happens
// under the lock so concurrent toggles are stored in the order applied.
func (c *Controller) ToggleTheme() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dark := !c.state.DarkMode
	c.setDarkMode(dark)

	if c.prefs == nil {
		return nil
	}
	if err := c.prefs.Set(DarkModeKey, strconv.FormatBool(dark)); err != nil {
		log.Printf("dashboard: save theme preference: %v", err)
		return err
	}
	return nil
}

func (c *Controller) setDarkMode(dark bool) {
	c.state.DarkMode = dark
	c.page.DarkMode = dark
	c.page.ThemeGlyph = themeGlyph(dark)
}

// Locate places the device location marker. With the map hidden it only
// reveals the map; the user locates with a second request.
func (c *Controller) Locate(ctx context.Context, geo Geolocator) error {
	c.mu.Lock()
	if !c.state.MapVisible {
		c.mu.Unlock()
		metrics.LocateRequests.WithLabelValues("map_revealed").Inc()
		return c.ToggleMap(ctx)
	}
	if geo == nil {
		c.page.Alerts = append(c.page.Alerts, AlertLocateNoSupport)
		c.mu.Unlock()
		metrics.LocateRequests.WithLabelValues("unsupported").Inc()
		return ErrGeolocationUnsupported
	}
	c.page.LocateLabel = LocateBusyLabel
	c.page.LocateDisabled = true
	c.mu.Unlock()

	pos, err := geo.CurrentPosition(ctx, LocateOptions)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.LocateLabel = LocateIdleLabel
	c.page.LocateDisabled = false

	switch {
	case errors.Is(err, ErrGeolocationUnsupported):
		c.page.Alerts = append(c.page.Alerts, AlertLocateNoSupport)
		metrics.LocateRequests.WithLabelValues("unsupported").Inc()
		return err
	case err != nil:
		log.Printf("dashboard: geolocation: %v", err)
		c.page.Alerts = append(c.page.Alerts, AlertLocateFailed)
		metrics.LocateRequests.WithLabelValues("failed").Inc()
		return err
	}

	c.adapter.SetUserMarker(mapview.LatLng{Lat: pos.Lat, Lng: pos.Lng})
	metrics.LocateRequests.WithLabelValues("ok").Inc()
	return nil
}

// SelectArea centers the map on a 2-hour area card and opens its popup.
// It does nothing while the map is hidden.
func (c *Controller) SelectArea(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.MapVisible || c.adapter == nil {
		return false
	}
	for _, p := range c.state.LastRendered.TwoHour {
		if p.LocationName == name {
			return c.adapter.FocusArea(name, mapview.LatLng{Lat: p.Latitude, Lng: p.Longitude})
		}
	}
	return false
}

// Page returns a copy of the current page and clears pending alerts.
func (c *Controller) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.page
	p.Alerts = append([]string(nil), c.page.Alerts...)
	c.page.Alerts = nil
	return p
}

// State returns a copy of the view state.
func (c *Controller) State() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Map returns the map scene, or false before the map was first shown.
func (c *Controller) Map() (mapview.SceneSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scene == nil {
		return mapview.SceneSnapshot{}, false
	}
	return c.scene.Snapshot(), true
}
