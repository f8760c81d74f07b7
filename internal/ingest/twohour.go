package ingest

import (
	"github.com/tidwall/gjson"

	"github.com/lox/sgweather/internal/models"
)

type coord struct {
	lat, lon float64
}

// NormalizeTwoHour converts a two-hr-forecast response into one ForecastPoint
// per forecast area. Areas missing from the metadata list, or listed without
// coordinates, are dropped.
func NormalizeTwoHour(raw []byte) []models.ForecastPoint {
	doc := gjson.ParseBytes(raw)

	coords := make(map[string]coord)
	doc.Get("data.area_metadata").ForEach(func(_, area gjson.Result) bool {
		name := area.Get("name").String()
		lat := numberOf(area.Get("label_location.latitude"))
		lon := numberOf(area.Get("label_location.longitude"))
		if name != "" && lat != nil && lon != nil {
			coords[name] = coord{lat: *lat, lon: *lon}
		}
		return true
	})

	item := doc.Get("data.items.0")
	start := timeOf(item.Get("valid_period.start"))
	end := timeOf(item.Get("valid_period.end"))
	updated := timePtrOf(item.Get("update_timestamp"))

	points := []models.ForecastPoint{}
	item.Get("forecasts").ForEach(func(_, fc gjson.Result) bool {
		name := fc.Get("area").String()
		c, ok := coords[name]
		if !ok {
			return true
		}
		points = append(points, models.ForecastPoint{
			LocationName: name,
			Latitude:     c.lat,
			Longitude:    c.lon,
			Text:         textOf(fc.Get("forecast")),
			PeriodStart:  start,
			PeriodEnd:    end,
			UpdatedAt:    updated,
		})
		return true
	})
	return points
}
