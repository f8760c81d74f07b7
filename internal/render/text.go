package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/lox/sgweather/internal/htmlutil"
	"github.com/lox/sgweather/internal/models"
)

// PlainText renders a normalized result of any feed as terminal text. The
// forecast horizons reuse the dashboard fragments.
func (r *Renderer) PlainText(data any) (string, error) {
	state := models.NewViewState()

	var parts []template.HTML
	switch d := data.(type) {
	case []models.ForecastPoint:
		view, err := r.TwoHour(d, state)
		if err != nil {
			return "", err
		}
		parts = append(parts, view.Period, view.Cards)
	case *models.DayPeriodForecast:
		view, ok, err := r.TwentyFourHour(d, state)
		if err != nil {
			return "", err
		}
		if !ok {
			return "No 24-hour forecast available", nil
		}
		parts = append(parts, view.General, view.Regions)
	case models.DayOutlook:
		view, err := r.FourDay(d, state)
		if err != nil {
			return "", err
		}
		parts = append(parts, template.HTML(template.HTMLEscapeString(view.Updated)), view.Cards)
	case models.AirQuality:
		return r.airText(d), nil
	default:
		return "", fmt.Errorf("no text rendering for %T", data)
	}

	var out []string
	for _, p := range parts {
		if text := htmlutil.ToText(string(p)); text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n"), nil
}
