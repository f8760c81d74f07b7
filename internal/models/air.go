package models

import "time"

// AirReading is the latest set of values for one region, keyed by the
// upstream reading name such as "psi_twenty_four_hourly".
type AirReading struct {
	Region    string             `json:"region"`
	Latitude  float64            `json:"latitude,omitempty"`
	Longitude float64            `json:"longitude,omitempty"`
	Values    map[string]float64 `json:"values"`
}

// AirQuality is one update of the PSI or PM2.5 feed.
type AirQuality struct {
	Feed      Horizon      `json:"feed"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
	Regions   []AirReading `json:"regions"`
}

// Region returns the reading for the named region.
func (q AirQuality) Region(name string) (AirReading, bool) {
	for _, r := range q.Regions {
		if r.Region == name {
			return r, true
		}
	}
	return AirReading{}, false
}
