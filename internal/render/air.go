package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lox/sgweather/internal/models"
)

// airLabels are the readings with a fixed caption, in display order.
var airLabels = []struct{ key, label string }{
	{"psi_twenty_four_hourly", "PSI (24hr)"},
	{"psi_three_hourly", "PSI (3hr)"},
	{"pm25_one_hourly", "PM2.5 (1hr)"},
	{"pm25_twenty_four_hourly", "PM2.5 (24hr)"},
	{"pm10_twenty_four_hourly", "PM10 (24hr)"},
	{"so2_twenty_four_hourly", "SO2 (24hr)"},
	{"o3_eight_hour_max", "O3 (8hr max)"},
	{"no2_one_hour_max", "NO2 (1hr max)"},
	{"co_eight_hour_max", "CO (8hr max)"},
}

// AirLine formats a region's readings. Captioned readings come first; the
// rest, sub-indices mostly, follow by name.
func AirLine(r models.AirReading) string {
	var parts []string
	seen := make(map[string]bool)
	for _, l := range airLabels {
		if v, ok := r.Values[l.key]; ok {
			parts = append(parts, l.label+" "+num(&v))
			seen[l.key] = true
		}
	}

	var rest []string
	for key := range r.Values {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		v := r.Values[key]
		parts = append(parts, strings.ReplaceAll(key, "_", " ")+" "+num(&v))
	}
	return strings.Join(parts, ", ")
}

func regionTitle(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (r *Renderer) airText(q models.AirQuality) string {
	if len(q.Regions) == 0 {
		return "No " + q.Feed.Label() + " readings available"
	}
	head := q.Feed.Label()
	if q.UpdatedAt != nil {
		head += " (updated " + q.UpdatedAt.In(r.loc).Format(outlookLayout) + ")"
	}
	lines := []string{head}
	for _, reading := range q.Regions {
		lines = append(lines, fmt.Sprintf("%s: %s", regionTitle(reading.Region), AirLine(reading)))
	}
	return strings.Join(lines, "\n")
}
