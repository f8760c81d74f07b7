package render

import (
	"html/template"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/models"
)

// TwentyFourHourView is the rendered 24-hour section.
type TwentyFourHourView struct {
	General template.HTML
	Regions template.HTML
}

type generalData struct {
	Text          string
	Emoji         string
	ValidPeriod   string
	TempLow       string
	TempHigh      string
	HumidityLow   string
	HumidityHigh  string
	WindDirection string
	WindLow       string
	WindHigh      string
	Updated       string
}

type periodRow struct {
	Label   string
	Regions []regionCell
}

type regionCell struct {
	Name  string
	Emoji string
	Text  string
}

// TwentyFourHour renders the general summary and one row per time period
// with every region side by side. ok is false when there is no forecast, in
// which case the section keeps whatever it showed before.
func (r *Renderer) TwentyFourHour(data *models.DayPeriodForecast, _ models.ViewState) (view TwentyFourHourView, ok bool, err error) {
	if data == nil {
		record(models.Horizon24Hour, "empty")
		return TwentyFourHourView{}, false, nil
	}

	g := data.General
	general := generalData{
		Text:          g.Text,
		Emoji:         forecast.Emoji(g.Text),
		ValidPeriod:   g.ValidPeriod,
		TempLow:       num(g.Temperature.Low),
		TempHigh:      num(g.Temperature.High),
		HumidityLow:   num(g.Humidity.Low),
		HumidityHigh:  num(g.Humidity.High),
		WindDirection: orMissing(g.Wind.Direction),
		WindLow:       num(g.Wind.SpeedLow),
		WindHigh:      num(g.Wind.SpeedHigh),
		Updated:       r.clockPtr(data.UpdatedAt),
	}

	rows := make([]periodRow, 0, len(data.Periods))
	for _, p := range data.Periods {
		row := periodRow{Label: p.Label}
		for _, rf := range p.Regions {
			row.Regions = append(row.Regions, regionCell{
				Name:  rf.Region,
				Emoji: forecast.Emoji(rf.Text),
				Text:  rf.Text,
			})
		}
		rows = append(rows, row)
	}

	if view.General, err = r.execute("general", general); err != nil {
		record(models.Horizon24Hour, "error")
		return TwentyFourHourView{}, false, err
	}
	if view.Regions, err = r.execute("regions", rows); err != nil {
		record(models.Horizon24Hour, "error")
		return TwentyFourHourView{}, false, err
	}
	record(models.Horizon24Hour, "ok")
	return view, true, nil
}
