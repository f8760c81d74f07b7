package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/geocode"
	"github.com/lox/sgweather/internal/mapview"
	"github.com/lox/sgweather/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

// MapResponse is the map scene the page mirrors into Leaflet.
type MapResponse struct {
	Visible bool                   `json:"visible"`
	Scene   *mapview.SceneSnapshot `json:"scene,omitempty"`
}

func (s *Server) handleAPIMap(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r)
	resp := MapResponse{Visible: ctrl.State().MapVisible}
	if snap, ok := ctrl.Map(); ok {
		resp.Scene = &snap
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// fetchHorizon returns the normalized data of one horizon.
func (s *Server) fetchHorizon(ctx context.Context, h models.Horizon) (any, error) {
	switch h {
	case models.Horizon2Hour:
		return s.source.FetchTwoHour(ctx)
	case models.Horizon24Hour:
		return s.source.FetchTwentyFourHour(ctx)
	case models.Horizon4Day:
		return s.source.FetchFourDay(ctx)
	}
	return nil, fmt.Errorf("unknown horizon %q", h)
}

func (s *Server) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	h, ok := models.ParseHorizon(r.PathValue("horizon"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown horizon"})
		return
	}
	data, err := s.fetchHorizon(r.Context(), h)
	if err != nil {
		log.Printf("api: forecast %s: %v", h, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// NearestResponse is the forecast for a position, with the geocoded address
// when the position came from ?q= and the region's PSI reading when air
// quality is configured.
type NearestResponse struct {
	forecast.Location
	Address *geocode.Result    `json:"address,omitempty"`
	Air     *models.AirReading `json:"air,omitempty"`
}

// position reads ?lat=&lon=, or geocodes ?q=. status is the HTTP status to
// answer with when err is set.
func (s *Server) position(r *http.Request) (lat, lon float64, addr *geocode.Result, status int, err error) {
	q := r.URL.Query()
	if query := q.Get("q"); query != "" {
		if s.geocoder == nil {
			return 0, 0, nil, http.StatusServiceUnavailable, errors.New("address lookup is not configured")
		}
		res, err := s.geocoder.Geocode(r.Context(), query)
		switch {
		case errors.Is(err, geocode.ErrNotFound):
			return 0, 0, nil, http.StatusNotFound, err
		case err != nil:
			log.Printf("api: geocode %q: %v", query, err)
			return 0, 0, nil, http.StatusBadGateway, err
		}
		return res.Lat, res.Lon, &res, 0, nil
	}

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, nil, http.StatusBadRequest, errors.New("lat and lon, or q, are required")
	}
	return lat, lon, nil, 0, nil
}

func (s *Server) handleAPINearest(w http.ResponseWriter, r *http.Request) {
	lat, lon, addr, status, err := s.position(r)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	points, err := s.source.FetchTwoHour(r.Context())
	if err != nil {
		log.Printf("api: nearest: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	// The region periods and air reading are optional.
	day, err := s.source.FetchTwentyFourHour(r.Context())
	if err != nil {
		log.Printf("api: nearest: 24-hour forecast: %v", err)
	}

	loc, ok := forecast.Lookup(points, day, lat, lon)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no forecast areas available"})
		return
	}
	resp := NearestResponse{Location: loc, Address: addr}
	if s.air != nil {
		if q, err := s.air.FetchAirQuality(r.Context(), models.FeedPSI); err != nil {
			log.Printf("api: nearest: psi: %v", err)
		} else if reading, ok := forecast.AirFor(q, lat, lon); ok {
			resp.Air = &reading
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAPIAir returns a whole air-quality feed, or with ?lat=&lon= the
// reading of the region containing that position.
func (s *Server) handleAPIAir(w http.ResponseWriter, r *http.Request) {
	feed, ok := models.ParseFeed(r.PathValue("feed"))
	if !ok || !feed.IsAir() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown air-quality feed"})
		return
	}
	if s.air == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "air quality is not configured"})
		return
	}

	q, err := s.air.FetchAirQuality(r.Context(), feed)
	if err != nil {
		log.Printf("api: air %s: %v", feed, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if !r.URL.Query().Has("lat") && !r.URL.Query().Has("lon") {
		writeJSON(w, http.StatusOK, q)
		return
	}

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lat or lon"})
		return
	}
	reading, ok := forecast.AirFor(q, lat, lon)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reading for " + forecast.RegionFor(lat, lon)})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}
