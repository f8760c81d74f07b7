package ingest

import (
	"sort"

	"github.com/tidwall/gjson"

	"github.com/lox/sgweather/internal/models"
)

// NormalizeAirQuality converts a psi or pm25 response. Both the camelCase
// real-time layout and the older snake_case one are read. Values that are
// not numbers are skipped.
func NormalizeAirQuality(feed models.Horizon, raw []byte) models.AirQuality {
	doc := gjson.ParseBytes(raw)
	if data := doc.Get("data"); data.IsObject() {
		doc = data
	}

	coords := make(map[string]coord)
	firstPresent(doc, "regionMetadata", "region_metadata").ForEach(func(_, m gjson.Result) bool {
		loc := firstPresent(m, "labelLocation", "label_location")
		lat := numberOf(loc.Get("latitude"))
		lon := numberOf(loc.Get("longitude"))
		if name := m.Get("name").String(); name != "" && lat != nil && lon != nil {
			coords[name] = coord{lat: *lat, lon: *lon}
		}
		return true
	})

	item := doc.Get("items.0")
	out := models.AirQuality{
		Feed:      feed,
		UpdatedAt: timePtrOf(firstPresent(item, "updatedTimestamp", "update_timestamp", "timestamp")),
		Regions:   []models.AirReading{},
	}

	byRegion := make(map[string]*models.AirReading)
	item.Get("readings").ForEach(func(reading, regions gjson.Result) bool {
		regions.ForEach(func(region, value gjson.Result) bool {
			v := numberOf(value)
			if v == nil {
				return true
			}
			name := region.String()
			r, ok := byRegion[name]
			if !ok {
				c := coords[name]
				r = &models.AirReading{Region: name, Latitude: c.lat, Longitude: c.lon, Values: make(map[string]float64)}
				byRegion[name] = r
			}
			r.Values[reading.String()] = *v
			return true
		})
		return true
	})

	for _, r := range byRegion {
		out.Regions = append(out.Regions, *r)
	}
	sort.Slice(out.Regions, func(i, j int) bool {
		a, b := out.Regions[i].Region, out.Regions[j].Region
		if ra, rb := regionRank(a), regionRank(b); ra != rb {
			return ra < rb
		}
		return a < b
	})
	return out
}

// regionRank orders the five forecast regions first, then "national", then
// anything else.
func regionRank(name string) int {
	for i, r := range models.Regions {
		if r == name {
			return i
		}
	}
	if name == "national" {
		return len(models.Regions)
	}
	return len(models.Regions) + 1
}
