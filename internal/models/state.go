package models

// RenderedData caches the most recent normalized result per horizon.
type RenderedData struct {
	TwoHour        []ForecastPoint
	TwentyFourHour *DayPeriodForecast
	FourDay        *DayOutlook
}

// ViewState is the dashboard state for one browser session. Only DarkMode
// outlives the session.
type ViewState struct {
	ActiveHorizon Horizon
	CompactLayout bool
	MapVisible    bool
	DarkMode      bool
	LastRendered  RenderedData
}

// NewViewState returns the state a fresh page starts in.
func NewViewState() ViewState {
	return ViewState{
		ActiveHorizon: Horizon2Hour,
		CompactLayout: true,
	}
}
