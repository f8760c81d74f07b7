package ingest

import (
	"github.com/tidwall/gjson"

	"github.com/lox/sgweather/internal/models"
)

const unknownDate = "Date not available"

// outlookStrategy extracts the forecast list from one known 4-day payload
// shape. ok is false when the shape does not match or its list is empty.
type outlookStrategy struct {
	name    string
	extract func(doc gjson.Result) (days []gjson.Result, updated gjson.Result, ok bool)
}

func pathStrategy(name, forecasts, updated string) outlookStrategy {
	return outlookStrategy{
		name: name,
		extract: func(doc gjson.Result) ([]gjson.Result, gjson.Result, bool) {
			list := doc.Get(forecasts)
			if !list.IsArray() {
				return nil, gjson.Result{}, false
			}
			days := list.Array()
			if len(days) == 0 {
				return nil, gjson.Result{}, false
			}
			var ts gjson.Result
			if updated != "" {
				ts = doc.Get(updated)
			}
			return days, ts, true
		},
	}
}

// outlookStrategies are tried in order; the first non-empty result wins.
var outlookStrategies = []outlookStrategy{
	pathStrategy("records", "data.records.0.forecasts", "data.records.0.updatedTimestamp"),
	pathStrategy("data", "data.forecasts", "data.updatedTimestamp"),
	pathStrategy("top-level", "forecasts", ""),
}

// NormalizeFourDay converts a four-day-outlook response into a DayOutlook.
// A payload matching none of the known shapes yields an empty outlook.
func NormalizeFourDay(raw []byte) models.DayOutlook {
	doc := gjson.ParseBytes(raw)
	for _, s := range outlookStrategies {
		days, updated, ok := s.extract(doc)
		if !ok {
			continue
		}
		out := models.DayOutlook{
			Days:      make([]models.OutlookDay, 0, len(days)),
			UpdatedAt: timePtrOf(updated),
		}
		for _, d := range days {
			out.Days = append(out.Days, outlookDayOf(d))
		}
		return out
	}
	return models.DayOutlook{}
}

func outlookDayOf(d gjson.Result) models.OutlookDay {
	return models.OutlookDay{
		Label:       dayLabel(d),
		Text:        outlookText(d.Get("forecast")),
		Temperature: rangeOf(d.Get("temperature")),
		Humidity:    humidityOf(d),
		Wind:        windOf(d.Get("wind")),
	}
}

var humidityKeys = []string{"relative_humidity", "humidity", "relativeHumidity"}

// humidityOf resolves low and high separately, each from the first humidity
// field that carries it.
func humidityOf(d gjson.Result) models.Range {
	var r models.Range
	for _, key := range humidityKeys {
		h := d.Get(key)
		if r.Low == nil {
			r.Low = numberOf(h.Get("low"))
		}
		if r.High == nil {
			r.High = numberOf(h.Get("high"))
		}
	}
	return r
}

// outlookText prefers the short summary over the longer text.
func outlookText(r gjson.Result) string {
	if r.IsObject() {
		if s := r.Get("summary"); s.Type == gjson.String && s.String() != "" {
			return s.String()
		}
	}
	return textOf(r)
}

// dayLabel builds "Monday, 20 Oct" from the weekday and date fields.
func dayLabel(d gjson.Result) string {
	day := d.Get("day").String()
	raw := firstPresent(d, "date", "timestamp", "forecastDate").String()
	if raw == "" {
		if day != "" {
			return day
		}
		return unknownDate
	}

	dateText := raw
	if t, ok := parseTime(raw); ok {
		dateText = t.Format("2 Jan")
	}
	if day != "" {
		return day + ", " + dateText
	}
	return dateText
}
