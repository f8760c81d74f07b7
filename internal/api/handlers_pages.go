package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lox/sgweather/internal/dashboard"
	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/models"
	"github.com/lox/sgweather/internal/store"
)

// IndexData is everything the dashboard page template needs.
type IndexData struct {
	Page      dashboard.Page
	Horizons  []models.Horizon
	Palette   forecast.Palette
	Category  forecast.Category
	BannerURL string
	BannerAlt string

	// LocateBusyLabel is shown while the browser resolves the position.
	LocateBusyLabel string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r)
	page := ctrl.Page()
	category := currentCategory(ctrl.State())

	data := IndexData{
		Page:      page,
		Horizons:  models.Horizons,
		Palette:   forecast.GetPalette(category, page.DarkMode),
		Category:  category,
		BannerURL: "/banner.png?c=" + url.QueryEscape(string(category)),
		BannerAlt: category.Readable() + " weather",

		LocateBusyLabel: dashboard.LocateBusyLabel,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: render index: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// currentCategory picks the weather category that tints the page: the
// 24-hour general forecast when loaded, otherwise the most common 2-hour
// forecast.
func currentCategory(state models.ViewState) forecast.Category {
	if day := state.LastRendered.TwentyFourHour; day != nil && day.General.Text != "" {
		return forecast.Classify(day.General.Text).Category
	}
	texts := make([]string, 0, len(state.LastRendered.TwoHour))
	for _, p := range state.LastRendered.TwoHour {
		texts = append(texts, p.Text)
	}
	return forecast.Dominant(texts)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHorizon(w http.ResponseWriter, r *http.Request) {
	h, ok := models.ParseHorizon(r.FormValue("horizon"))
	if !ok {
		http.Error(w, "unknown horizon", http.StatusBadRequest)
		return
	}
	// Fetch failures are shown by the page's error banner.
	s.controller(w, r).SwitchHorizon(r.Context(), h)
	redirectHome(w, r)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	s.controller(w, r).ToggleLayout()
	redirectHome(w, r)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	s.controller(w, r).ToggleMap(r.Context())
	redirectHome(w, r)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	// A failed save still flips the theme for this session.
	s.controller(w, r).ToggleTheme()
	redirectHome(w, r)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r)
	geo := geolocatorFromForm(r)
	if err := ctrl.Locate(r.Context(), geo); err != nil {
		log.Printf("api: locate: %v", err)
	}
	redirectHome(w, r)
}

func (s *Server) handleArea(w http.ResponseWriter, r *http.Request) {
	s.controller(w, r).SelectArea(r.FormValue("name"))
	redirectHome(w, r)
}

var errNoPosition = errors.New("no position reported")

// reportedPosition is the browser's geolocation result relayed by the
// locate form.
type reportedPosition struct {
	pos dashboard.Position
	err error
}

func (p reportedPosition) CurrentPosition(_ context.Context, _ dashboard.PositionOptions) (dashboard.Position, error) {
	return p.pos, p.err
}

// geolocatorFromForm adapts the locate form into a Geolocator. The form's
// status is "ok" with lat, lng and accuracy, "error" with a message, or
// "unsupported" when the browser has no geolocation, which yields nil.
func geolocatorFromForm(r *http.Request) dashboard.Geolocator {
	switch r.FormValue("status") {
	case "unsupported":
		return nil
	case "ok":
		lat, errLat := strconv.ParseFloat(r.FormValue("lat"), 64)
		lng, errLng := strconv.ParseFloat(r.FormValue("lng"), 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return reportedPosition{err: fmt.Errorf("invalid position %q,%q", r.FormValue("lat"), r.FormValue("lng"))}
		}
		accuracy, _ := strconv.ParseFloat(r.FormValue("accuracy"), 64)
		return reportedPosition{pos: dashboard.Position{Lat: lat, Lng: lng, Accuracy: accuracy}}
	case "error":
		return reportedPosition{err: fmt.Errorf("browser geolocation: %s", r.FormValue("message"))}
	default:
		return reportedPosition{err: errNoPosition}
	}
}

// HealthStatus represents the overall system health.
type HealthStatus struct {
	Status   string                      `json:"status"`
	Sessions int                         `json:"sessions"`
	Ingest   []store.IngestHealthSummary `json:"ingest,omitempty"`
	Banners  []string                    `json:"banners,omitempty"`
	Errors   []string                    `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:   "ok",
		Sessions: s.sessions.count(),
	}

	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			health.Status = "error"
			health.Errors = append(health.Errors, "database: "+err.Error())
		} else if summary, err := s.store.GetIngestHealth(1); err != nil {
			health.Errors = append(health.Errors, "ingest: "+err.Error())
		} else {
			health.Ingest = summary
			for _, day := range summary {
				if day.TotalRuns > 0 && day.SuccessRuns == 0 {
					health.Status = "degraded"
				}
			}
		}
	}

	for _, e := range s.imageCache.List() {
		if !e.Stale {
			health.Banners = append(health.Banners, string(e.Category))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "error" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("health: write response: %v", err)
	}
}
