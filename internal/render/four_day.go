package render

import (
	"html/template"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/models"
)

// FourDayView is the rendered 4-day section.
type FourDayView struct {
	Updated string
	Cards   template.HTML
}

type dayCard struct {
	Label         string
	Emoji         string
	Text          string
	TempLow       string
	TempHigh      string
	HumidityLow   string
	HumidityHigh  string
	WindDirection string
	WindLow       string
	WindHigh      string
}

// FourDay renders one card per day, or a single "no data" card.
func (r *Renderer) FourDay(outlook models.DayOutlook, _ models.ViewState) (FourDayView, error) {
	if outlook.Empty() {
		cards, err := r.execute("outlook-empty", nil)
		if err != nil {
			record(models.Horizon4Day, "error")
			return FourDayView{}, err
		}
		record(models.Horizon4Day, "empty")
		return FourDayView{Cards: cards}, nil
	}

	var view FourDayView
	if outlook.UpdatedAt != nil {
		view.Updated = "Last updated: " + outlook.UpdatedAt.In(r.loc).Format(outlookLayout)
	}

	cards := make([]dayCard, 0, len(outlook.Days))
	for _, d := range outlook.Days {
		cards = append(cards, dayCard{
			Label:         d.Label,
			Emoji:         forecast.Emoji(d.Text),
			Text:          d.Text,
			TempLow:       num(d.Temperature.Low),
			TempHigh:      num(d.Temperature.High),
			HumidityLow:   num(d.Humidity.Low),
			HumidityHigh:  num(d.Humidity.High),
			WindDirection: orMissing(d.Wind.Direction),
			WindLow:       num(d.Wind.SpeedLow),
			WindHigh:      num(d.Wind.SpeedHigh),
		})
	}

	var err error
	if view.Cards, err = r.execute("outlook", cards); err != nil {
		record(models.Horizon4Day, "error")
		return FourDayView{}, err
	}
	record(models.Horizon4Day, "ok")
	return view, nil
}
