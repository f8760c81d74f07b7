// Package render turns normalized forecasts into HTML fragments for the
// dashboard sections and, for the 2-hour horizon, map marker placements.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/mapview"
	"github.com/lox/sgweather/internal/metrics"
	"github.com/lox/sgweather/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// Missing is shown in place of any absent number.
const Missing = "?"

const (
	clockLayout   = "03:04 PM"
	outlookLayout = "Mon, 2 Jan, 03:04 PM"
)

type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// New parses the embedded templates. Times are shown in loc.
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &Renderer{tmpl: tmpl, loc: loc}
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.loc).Format(clockLayout)
}

func (r *Renderer) clockPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return r.clock(*t)
}

// num formats an optional number, keeping zero as a real value.
func num(v *float64) string {
	if v == nil {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orMissing(s string) string {
	if s == "" {
		return Missing
	}
	return s
}

// Popup is the marker popup markup for an area.
func Popup(name, text string) string {
	return "<strong>" + template.HTMLEscapeString(name) + "</strong><br>" +
		forecast.Emoji(text) + " " + template.HTMLEscapeString(text)
}

// record counts one render for the horizon's metrics.
func record(h models.Horizon, outcome string) {
	metrics.ViewRenders.WithLabelValues(string(h), outcome).Inc()
}

// MarkerFor derives the map marker of one 2-hour forecast point.
func MarkerFor(p models.ForecastPoint) mapview.Marker {
	style := forecast.Classify(p.Text)
	return mapview.Marker{
		Name:  p.LocationName,
		At:    mapview.LatLng{Lat: p.Latitude, Lng: p.Longitude},
		Style: mapview.ForecastStyle(style.Color),
		Popup: Popup(p.LocationName, p.Text),
	}
}
