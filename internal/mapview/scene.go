package mapview

import (
	"sort"
	"sync"
)

// Scene is a Map held in memory. Its Snapshot is what the browser renders.
type Scene struct {
	mu      sync.Mutex
	center  LatLng
	zoom    int
	tiles   []TileLayer
	layers  map[LayerID]*sceneLayer
	nextID  LayerID
	open    LayerID
	resizes int
}

type sceneLayer struct {
	at    LatLng
	style MarkerStyle
	popup string
}

// NewScene creates a map centered at center.
func NewScene(center LatLng, zoom int) *Scene {
	return &Scene{
		center: center,
		zoom:   zoom,
		layers: make(map[LayerID]*sceneLayer),
	}
}

func (s *Scene) SetView(center LatLng, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = center
	s.zoom = zoom
}

func (s *Scene) AddTileLayer(t TileLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = append(s.tiles, t)
}

func (s *Scene) AddCircleMarker(at LatLng, style MarkerStyle) LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.layers[s.nextID] = &sceneLayer{at: at, style: style}
	return s.nextID
}

func (s *Scene) RemoveLayer(id LayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layers, id)
	if s.open == id {
		s.open = 0
	}
}

// InvalidateSize bumps a counter the browser uses to call invalidateSize.
func (s *Scene) InvalidateSize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizes++
}

func (s *Scene) BindPopup(id LayerID, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.layers[id]; ok {
		l.popup = html
	}
}

// OpenPopup opens the popup of id and closes any other.
func (s *Scene) OpenPopup(id LayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[id]; ok {
		s.open = id
	}
}

// LayerCount returns the number of marker layers on the map.
func (s *Scene) LayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layers)
}

// SceneLayer is the JSON form of one marker layer.
type SceneLayer struct {
	ID    LayerID     `json:"id"`
	At    LatLng      `json:"at"`
	Style MarkerStyle `json:"style"`
	Popup string      `json:"popup,omitempty"`
	Open  bool        `json:"open,omitempty"`
}

// SceneSnapshot is the serializable state of a Scene.
type SceneSnapshot struct {
	Center  LatLng       `json:"center"`
	Zoom    int          `json:"zoom"`
	Tiles   []TileLayer  `json:"tiles"`
	Layers  []SceneLayer `json:"layers"`
	Resizes int          `json:"resizes"`
}

// Snapshot copies the scene with layers in creation order.
func (s *Scene) Snapshot() SceneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SceneSnapshot{
		Center:  s.center,
		Zoom:    s.zoom,
		Tiles:   append([]TileLayer{}, s.tiles...),
		Layers:  make([]SceneLayer, 0, len(s.layers)),
		Resizes: s.resizes,
	}
	for id, l := range s.layers {
		snap.Layers = append(snap.Layers, SceneLayer{
			ID:    id,
			At:    l.at,
			Style: l.style,
			Popup: l.popup,
			Open:  id == s.open,
		})
	}
	sort.Slice(snap.Layers, func(i, j int) bool { return snap.Layers[i].ID < snap.Layers[j].ID })
	return snap
}
