package models

import "time"

// Regions are the five fixed regions of the 24-hour forecast, in display order.
var Regions = []string{"west", "east", "central", "south", "north"}

// ForecastPoint is one named area of the 2-hour nowcast.
type ForecastPoint struct {
	LocationName string     `json:"location_name"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Text         string     `json:"forecast"`
	PeriodStart  time.Time  `json:"start_time"`
	PeriodEnd    time.Time  `json:"end_time"`
	UpdatedAt    *time.Time `json:"update_timestamp,omitempty"`
}

// Range is a low/high pair; either bound may be missing upstream.
type Range struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// Wind is a direction plus speed range in km/h.
type Wind struct {
	Direction string   `json:"direction,omitempty"`
	SpeedLow  *float64 `json:"speed_low,omitempty"`
	SpeedHigh *float64 `json:"speed_high,omitempty"`
}

// GeneralForecast is the island-wide summary of the 24-hour forecast.
type GeneralForecast struct {
	Text        string `json:"forecast"`
	ValidPeriod string `json:"valid_period,omitempty"`
	Temperature Range  `json:"temperature"`
	Humidity    Range  `json:"relative_humidity"`
	Wind        Wind   `json:"wind"`
}

// RegionForecast is one region's text within a time period. Text is empty when
// the source omitted the region.
type RegionForecast struct {
	Region string `json:"region"`
	Text   string `json:"forecast"`
}

// PeriodGroup holds every region's forecast for one time-period label.
type PeriodGroup struct {
	Label   string           `json:"time_period"`
	Regions []RegionForecast `json:"regions"`
}

// Region returns the forecast text for a region within the period.
func (p PeriodGroup) Region(name string) string {
	for _, r := range p.Regions {
		if r.Region == name {
			return r.Text
		}
	}
	return ""
}

// DayPeriodForecast is the 24-hour forecast grouped by time period.
type DayPeriodForecast struct {
	Date      string          `json:"date,omitempty"`
	UpdatedAt *time.Time      `json:"updated_timestamp,omitempty"`
	General   GeneralForecast `json:"general"`
	Periods   []PeriodGroup   `json:"periods"`
}

// OutlookDay is a single day of the 4-day outlook.
type OutlookDay struct {
	Label       string `json:"label"`
	Text        string `json:"forecast"`
	Temperature Range  `json:"temperature"`
	Humidity    Range  `json:"relative_humidity"`
	Wind        Wind   `json:"wind"`
}

// DayOutlook is the 4-day outlook in source (chronological) order.
// An outlook with no days is the explicit "no data" result.
type DayOutlook struct {
	Days      []OutlookDay `json:"days"`
	UpdatedAt *time.Time   `json:"updated_timestamp,omitempty"`
}

// Empty reports whether the outlook carries no forecast days.
func (o DayOutlook) Empty() bool {
	return len(o.Days) == 0
}
