// Package mapview places forecast markers on an interactive map. The map
// itself sits behind the Map interface; Scene is an in-memory implementation
// whose state the browser mirrors into Leaflet.
package mapview

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LayerID identifies a layer added to a Map.
type LayerID int

type MarkerStyle struct {
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Radius      int     `json:"radius"`
	Weight      int     `json:"weight"`
}

type TileLayer struct {
	URLTemplate string `json:"url"`
	Attribution string `json:"attribution"`
}

// Map is the subset of a map library the dashboard needs.
type Map interface {
	SetView(center LatLng, zoom int)
	AddTileLayer(t TileLayer)
	AddCircleMarker(at LatLng, style MarkerStyle) LayerID
	RemoveLayer(id LayerID)
	InvalidateSize()
	BindPopup(id LayerID, html string)
	OpenPopup(id LayerID)
}

// Marker is a forecast marker placement derived from a 2-hour forecast.
type Marker struct {
	Name  string      `json:"name"`
	At    LatLng      `json:"at"`
	Style MarkerStyle `json:"style"`
	Popup string      `json:"popup"`
}

var (
	SingaporeCenter = LatLng{Lat: 1.3521, Lng: 103.8198}

	OpenStreetMap = TileLayer{
		URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
	}
)

const (
	DefaultZoom = 11
	AreaZoom    = 14
	UserZoom    = 13
)

// UserPopup is the popup of the device location marker.
const UserPopup = "📍 Your Location"

var userStyle = MarkerStyle{
	Color:       "#ff0000",
	FillColor:   "#ff0000",
	FillOpacity: 0.8,
	Radius:      8,
	Weight:      3,
}

// ForecastStyle is the circle style of a forecast marker filled with color.
func ForecastStyle(color string) MarkerStyle {
	return MarkerStyle{
		Color:       "#ffffff",
		FillColor:   color,
		FillOpacity: 0.8,
		Radius:      10,
		Weight:      2,
	}
}
