package forecast

import (
	"math"

	"github.com/lox/sgweather/internal/models"
)

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Asin(math.Sqrt(a))
}

// regionCenters are approximate centre points of the five forecast regions.
var regionCenters = map[string][2]float64{
	"north":   {1.41, 103.82}, // Woodlands/Yishun
	"south":   {1.28, 103.85}, // Downtown
	"east":    {1.35, 103.94}, // Tampines/Changi
	"west":    {1.35, 103.70}, // Jurong
	"central": {1.35, 103.82},
}

// RegionFor returns the forecast region whose centre is nearest to lat/lon.
func RegionFor(lat, lon float64) string {
	best := ""
	bestDist := math.Inf(1)
	// Iterate in display order so ties resolve deterministically.
	for _, region := range models.Regions {
		c := regionCenters[region]
		if d := Haversine(lat, lon, c[0], c[1]); d < bestDist {
			best, bestDist = region, d
		}
	}
	return best
}

// AirFor returns the air-quality reading of the region lat/lon falls in.
func AirFor(q models.AirQuality, lat, lon float64) (models.AirReading, bool) {
	return q.Region(RegionFor(lat, lon))
}

// Nearest returns the forecast point closest to lat/lon and its distance in km.
// ok is false when points is empty.
func Nearest(points []models.ForecastPoint, lat, lon float64) (p models.ForecastPoint, km float64, ok bool) {
	km = math.Inf(1)
	for _, pt := range points {
		if d := Haversine(lat, lon, pt.Latitude, pt.Longitude); d < km {
			p, km, ok = pt, d, true
		}
	}
	return p, km, ok
}

// RegionPeriod is one time period of a region's 24-hour forecast.
type RegionPeriod struct {
	Label    string `json:"time_period"`
	Forecast string `json:"forecast"`
}

// Location is the forecast for a position: the closest 2-hour area and the
// 24-hour periods of the region the position falls in.
type Location struct {
	Area       string         `json:"area"`
	DistanceKM float64        `json:"distance_km"`
	Forecast   string         `json:"forecast"`
	Emoji      string         `json:"emoji"`
	Region     string         `json:"region"`
	Periods    []RegionPeriod `json:"periods,omitempty"`
}

// Lookup builds the Location for lat/lon. day may be nil. ok is false when
// there are no 2-hour points.
func Lookup(points []models.ForecastPoint, day *models.DayPeriodForecast, lat, lon float64) (Location, bool) {
	p, km, ok := Nearest(points, lat, lon)
	if !ok {
		return Location{}, false
	}
	loc := Location{
		Area:       p.LocationName,
		DistanceKM: math.Round(km*10) / 10,
		Forecast:   p.Text,
		Emoji:      Emoji(p.Text),
		Region:     RegionFor(lat, lon),
	}
	if day != nil {
		for _, period := range day.Periods {
			if text := period.Region(loc.Region); text != "" {
				loc.Periods = append(loc.Periods, RegionPeriod{Label: period.Label, Forecast: text})
			}
		}
	}
	return loc, true
}
