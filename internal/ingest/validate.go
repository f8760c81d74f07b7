package ingest

import (
	"encoding/json"

	"github.com/lox/sgweather/internal/models"
)

// Quality flags describe values that look wrong but are still passed through
// to the views unchanged.
const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagTempRangeInverted  = "temp_range_inverted"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagLocationOutOfBound = "location_out_of_bounds"
	FlagMissingPeriod      = "missing_valid_period"
	FlagAirOutOfRange      = "air_reading_out_of_range"
	FlagNoRegions          = "no_regions"
)

// Rough bounding box around Singapore, with some slack for offshore islands.
const (
	minLat = 1.1
	maxLat = 1.5
	minLon = 103.5
	maxLon = 104.2
)

func ValidateTwoHour(points []models.ForecastPoint) []string {
	var flags flagSet
	for _, p := range points {
		if p.Latitude < minLat || p.Latitude > maxLat || p.Longitude < minLon || p.Longitude > maxLon {
			flags.add(FlagLocationOutOfBound)
		}
		if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
			flags.add(FlagMissingPeriod)
		}
	}
	return flags.list()
}

func ValidateTwentyFourHour(data *models.DayPeriodForecast) []string {
	if data == nil {
		return nil
	}
	var flags flagSet
	checkRanges(&flags, data.General.Temperature, data.General.Humidity, data.General.Wind)
	return flags.list()
}

func ValidateFourDay(outlook models.DayOutlook) []string {
	var flags flagSet
	for _, d := range outlook.Days {
		checkRanges(&flags, d.Temperature, d.Humidity, d.Wind)
	}
	return flags.list()
}

// ValidateAirQuality flags empty updates and readings outside 0-1000, well
// past the top of the PSI scale.
func ValidateAirQuality(q models.AirQuality) []string {
	var flags flagSet
	if len(q.Regions) == 0 {
		flags.add(FlagNoRegions)
	}
	for _, r := range q.Regions {
		for _, v := range r.Values {
			if v < 0 || v > 1000 {
				flags.add(FlagAirOutOfRange)
			}
		}
	}
	return flags.list()
}

func checkRanges(flags *flagSet, temp, humidity models.Range, wind models.Wind) {
	for _, v := range []*float64{temp.Low, temp.High} {
		if v != nil && (*v < 15 || *v > 45) {
			flags.add(FlagTempOutOfRange)
		}
	}
	if temp.Low != nil && temp.High != nil && *temp.Low > *temp.High {
		flags.add(FlagTempRangeInverted)
	}
	for _, v := range []*float64{humidity.Low, humidity.High} {
		if v != nil && (*v < 0 || *v > 100) {
			flags.add(FlagHumidityInvalid)
		}
	}
	for _, v := range []*float64{wind.SpeedLow, wind.SpeedHigh} {
		if v != nil && (*v < 0 || *v > 150) {
			flags.add(FlagWindSpeedUnlikely)
		}
	}
}

// flagSet keeps flags unique and in first-seen order.
type flagSet struct {
	flags []string
}

func (s *flagSet) add(flag string) {
	for _, f := range s.flags {
		if f == flag {
			return
		}
	}
	s.flags = append(s.flags, flag)
}

func (s *flagSet) list() []string {
	return s.flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
