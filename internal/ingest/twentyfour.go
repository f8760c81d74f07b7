package ingest

import (
	"github.com/tidwall/gjson"

	"github.com/lox/sgweather/internal/models"
)

const unknownPeriod = "Time not available"

// NormalizeTwentyFourHour regroups the first 24-hour forecast record by time
// period, with every period carrying all five regions. It returns nil when the
// response has no record at all.
func NormalizeTwentyFourHour(raw []byte) *models.DayPeriodForecast {
	record := gjson.GetBytes(raw, "data.records.0")
	if !record.Exists() || record.Type == gjson.Null {
		return nil
	}

	general := record.Get("general")
	out := &models.DayPeriodForecast{
		Date:      record.Get("date").String(),
		UpdatedAt: timePtrOf(firstPresent(record, "updatedTimestamp", "timestamp")),
		General: models.GeneralForecast{
			Text:        textOf(general.Get("forecast")),
			ValidPeriod: general.Get("validPeriod.text").String(),
			Temperature: rangeOf(general.Get("temperature")),
			Humidity:    rangeOf(firstPresent(general, "relativeHumidity", "relative_humidity", "humidity")),
			Wind:        windOf(general.Get("wind")),
		},
		Periods: []models.PeriodGroup{},
	}

	index := make(map[string]int)
	record.Get("periods").ForEach(func(_, period gjson.Result) bool {
		label := period.Get("timePeriod.text").String()
		if label == "" {
			label = unknownPeriod
		}
		i, seen := index[label]
		if !seen {
			group := models.PeriodGroup{Label: label, Regions: make([]models.RegionForecast, len(models.Regions))}
			for j, region := range models.Regions {
				group.Regions[j].Region = region
			}
			out.Periods = append(out.Periods, group)
			i = len(out.Periods) - 1
			index[label] = i
		}

		regions := period.Get("regions")
		for j, region := range models.Regions {
			if v := regions.Get(region); v.Exists() {
				out.Periods[i].Regions[j].Text = textOf(v)
			}
		}
		return true
	})

	return out
}

func rangeOf(r gjson.Result) models.Range {
	return models.Range{
		Low:  numberOf(r.Get("low")),
		High: numberOf(r.Get("high")),
	}
}

func windOf(r gjson.Result) models.Wind {
	return models.Wind{
		Direction: r.Get("direction").String(),
		SpeedLow:  numberOf(r.Get("speed.low")),
		SpeedHigh: numberOf(r.Get("speed.high")),
	}
}
