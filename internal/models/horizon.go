package models

// Horizon names an upstream feed. The three forecast horizons are the
// dashboard tabs; the air-quality feeds share their fetch and archive
// bookkeeping but have no tab.
type Horizon string

const (
	Horizon2Hour  Horizon = "2hr"
	Horizon24Hour Horizon = "24hr"
	Horizon4Day   Horizon = "4day"

	FeedPSI  Horizon = "psi"
	FeedPM25 Horizon = "pm25"
)

// Horizons lists every horizon in tab order.
var Horizons = []Horizon{Horizon2Hour, Horizon24Hour, Horizon4Day}

// AirFeeds are the air-quality feeds.
var AirFeeds = []Horizon{FeedPSI, FeedPM25}

// Feeds is every feed the gateway fetches: the horizons, then air quality.
var Feeds = append(append([]Horizon{}, Horizons...), AirFeeds...)

// ParseHorizon maps a tab or URL value to a Horizon.
func ParseHorizon(s string) (Horizon, bool) {
	return parse(Horizons, s)
}

// ParseFeed is ParseHorizon extended to the air-quality feeds.
func ParseFeed(s string) (Horizon, bool) {
	return parse(Feeds, s)
}

func parse(set []Horizon, s string) (Horizon, bool) {
	for _, h := range set {
		if string(h) == s {
			return h, true
		}
	}
	return "", false
}

// IsAir reports whether h is an air-quality feed.
func (h Horizon) IsAir() bool {
	return h == FeedPSI || h == FeedPM25
}

// Label returns the tab caption for the horizon.
func (h Horizon) Label() string {
	switch h {
	case Horizon2Hour:
		return "2-Hour"
	case Horizon24Hour:
		return "24-Hour"
	case Horizon4Day:
		return "4-Day"
	case FeedPSI:
		return "PSI"
	case FeedPM25:
		return "PM2.5"
	default:
		return string(h)
	}
}
