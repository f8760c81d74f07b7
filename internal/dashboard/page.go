package dashboard

import (
	"github.com/lox/sgweather/internal/models"
	"github.com/lox/sgweather/internal/render"
)

// User-facing text.
const (
	ErrorMessage         = "Failed to load weather data. Please try again."
	LocateIdleLabel      = "📍 My Location"
	LocateBusyLabel      = "📍 Locating..."
	AlertLocateFailed    = "Unable to get your location. Please check your browser permissions."
	AlertLocateNoSupport = "Geolocation is not supported by this browser."
)

// Page is everything the dashboard markup shows: which tab and section is
// active, button captions and the rendered section fragments.
type Page struct {
	ActiveTab models.Horizon
	Loading   bool
	Error     string

	CompactLayout bool
	LayoutLabel   string

	MapVisible bool
	MapLabel   string

	DarkMode   bool
	ThemeGlyph string

	LocateLabel    string
	LocateDisabled bool

	TwoHour        render.TwoHourView
	TwentyFourHour render.TwentyFourHourView
	FourDay        render.FourDayView

	// Alerts are shown once as blocking browser alerts.
	Alerts []string
}

// SectionVisible reports whether the section for h is shown.
func (p Page) SectionVisible(h models.Horizon) bool {
	return p.ActiveTab == h
}

// TabActive reports whether the tab for h is highlighted.
func (p Page) TabActive(h models.Horizon) bool {
	return p.ActiveTab == h
}

func layoutLabel(compact bool) string {
	if compact {
		return "Standard View"
	}
	return "Compact View"
}

func mapLabel(visible bool) string {
	if visible {
		return "Hide Map"
	}
	return "Show Map"
}

func themeGlyph(dark bool) string {
	if dark {
		return "☀️"
	}
	return "🌙"
}
