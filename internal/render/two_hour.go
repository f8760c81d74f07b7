package render

import (
	"html/template"
	"strconv"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/mapview"
	"github.com/lox/sgweather/internal/models"
)

// TwoHourView is the rendered 2-hour section.
type TwoHourView struct {
	Period  template.HTML
	Cards   template.HTML
	Markers []mapview.Marker
}

type periodData struct {
	HasPeriod bool
	Start     string
	End       string
	Updated   string
}

type areaCard struct {
	Name      string
	Lat       string
	Lng       string
	Emoji     string
	Text      string
	Clickable bool
}

// TwoHour renders one card per area. Markers are only derived while the map
// is visible.
func (r *Renderer) TwoHour(points []models.ForecastPoint, state models.ViewState) (TwoHourView, error) {
	var view TwoHourView

	period := periodData{}
	if len(points) > 0 {
		first := points[0]
		period = periodData{
			HasPeriod: true,
			Start:     orMissing(r.clock(first.PeriodStart)),
			End:       orMissing(r.clock(first.PeriodEnd)),
			Updated:   r.clockPtr(first.UpdatedAt),
		}
	}

	cards := make([]areaCard, 0, len(points))
	for _, p := range points {
		cards = append(cards, areaCard{
			Name:      p.LocationName,
			Lat:       strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			Lng:       strconv.FormatFloat(p.Longitude, 'f', -1, 64),
			Emoji:     forecast.Emoji(p.Text),
			Text:      p.Text,
			Clickable: state.MapVisible,
		})
		if state.MapVisible {
			view.Markers = append(view.Markers, MarkerFor(p))
		}
	}

	var err error
	if view.Period, err = r.execute("period", period); err != nil {
		record(models.Horizon2Hour, "error")
		return TwoHourView{}, err
	}
	if view.Cards, err = r.execute("areas", cards); err != nil {
		record(models.Horizon2Hour, "error")
		return TwoHourView{}, err
	}
	record(models.Horizon2Hour, "ok")
	return view, nil
}
