package mapview

import "github.com/lox/sgweather/internal/htmlutil"

// Adapter tracks the forecast markers it placed so they can be cleared
// without touching the device location marker.
type Adapter struct {
	m       Map
	markers []LayerID
	popups  map[LayerID]string
	user    LayerID
}

// NewAdapter centers m on Singapore and adds the OpenStreetMap tiles.
func NewAdapter(m Map) *Adapter {
	m.SetView(SingaporeCenter, DefaultZoom)
	m.AddTileLayer(OpenStreetMap)
	return &Adapter{
		m:      m,
		popups: make(map[LayerID]string),
	}
}

// PlaceMarker adds a forecast marker with its popup bound.
func (a *Adapter) PlaceMarker(mk Marker) LayerID {
	id := a.m.AddCircleMarker(mk.At, mk.Style)
	if mk.Popup != "" {
		a.m.BindPopup(id, mk.Popup)
	}
	a.markers = append(a.markers, id)
	a.popups[id] = mk.Popup
	return id
}

// ReplaceMarkers clears the forecast markers and places markers.
func (a *Adapter) ReplaceMarkers(markers []Marker) {
	a.ClearMarkers()
	for _, mk := range markers {
		a.PlaceMarker(mk)
	}
}

// ClearMarkers removes every forecast marker. The user marker stays.
func (a *Adapter) ClearMarkers() {
	for _, id := range a.markers {
		if id == a.user {
			continue
		}
		a.m.RemoveLayer(id)
		delete(a.popups, id)
	}
	a.markers = a.markers[:0]
}

// MarkerCount returns the number of forecast markers on the map.
func (a *Adapter) MarkerCount() int {
	return len(a.markers)
}

// SetUserMarker places the device location marker, replacing any previous
// one, and centers the map on it.
func (a *Adapter) SetUserMarker(at LatLng) {
	if a.user != 0 {
		a.m.RemoveLayer(a.user)
	}
	a.user = a.m.AddCircleMarker(at, userStyle)
	a.m.BindPopup(a.user, UserPopup)
	a.m.SetView(at, UserZoom)
}

// HasUserMarker reports whether the device location has been placed.
func (a *Adapter) HasUserMarker() bool {
	return a.user != 0
}

// FocusArea centers the map on an area and opens the first forecast popup
// whose text mentions name. It reports whether a popup was opened.
func (a *Adapter) FocusArea(name string, at LatLng) bool {
	a.m.SetView(at, AreaZoom)
	for _, id := range a.markers {
		if htmlutil.TextContains(a.popups[id], name) {
			a.m.OpenPopup(id)
			return true
		}
	}
	return false
}

// InvalidateSize tells the map its container changed size.
func (a *Adapter) InvalidateSize() {
	a.m.InvalidateSize()
}
