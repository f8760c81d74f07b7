package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/imagegen"
	"github.com/lox/sgweather/internal/models"
)

// handleBanner serves the header image for the category in ?c=.
// It checks cache first, falls back to any cached banner while generating
// the right one in the background, and generates synchronously when nothing
// is cached.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	category, ok := forecast.ParseCategory(r.URL.Query().Get("c"))
	if !ok {
		category = forecast.CategoryGeneric
	}

	if data, ok := s.imageCache.Get(category); ok {
		s.serveBannerImage(w, data)
		return
	}

	if data, ok := s.imageCache.GetAny(); ok {
		go s.generateAndCache(category)
		s.serveBannerImage(w, data)
		return
	}

	if s.imageGen != nil {
		s.genMu.Lock()
		defer s.genMu.Unlock()

		// Double-check cache after acquiring lock
		if data, ok := s.imageCache.Get(category); ok {
			s.serveBannerImage(w, data)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		data, err := s.imageGen.Generate(ctx, category)
		if err != nil {
			log.Printf("banner: generation failed: %v", err)
			http.Error(w, "Image generation failed", http.StatusServiceUnavailable)
			return
		}
		if err := s.imageCache.Set(category, data); err != nil {
			log.Printf("banner: cache: %v", err)
		}
		s.serveBannerImage(w, data)
		return
	}

	http.Error(w, "Banner image unavailable", http.StatusServiceUnavailable)
}

func (s *Server) serveBannerImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (s *Server) generateAndCache(category forecast.Category) {
	if s.imageGen == nil {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	if _, ok := s.imageCache.Get(category); ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	data, err := s.imageGen.Generate(ctx, category)
	if err != nil {
		log.Printf("banner: background generation failed: %v", err)
		return
	}
	if err := s.imageCache.Set(category, data); err != nil {
		log.Printf("banner: cache: %v", err)
	}
}

// handleOGImage serves the Open Graph share image: the banner for the
// current 24-hour outlook with its summary written over it.
func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.ogImageCache.Get(); ok {
		serveOGImage(w, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	day, err := s.source.FetchTwentyFourHour(ctx)
	if err != nil {
		log.Printf("og-image: fetch 24-hour forecast: %v", err)
	}
	data, category := ogImageData(day)

	var ogImage []byte
	if banner, ok := s.imageCache.Get(category); ok {
		ogImage, err = imagegen.GenerateOGImage(banner, data)
	} else if banner, ok := s.imageCache.GetAny(); ok {
		ogImage, err = imagegen.GenerateOGImage(banner, data)
	} else {
		ogImage, err = imagegen.GenerateFallbackOGImage(data)
	}
	if err != nil {
		log.Printf("og-image: generate: %v", err)
		http.Error(w, "Failed to generate OG image", http.StatusInternalServerError)
		return
	}

	// Only a real forecast is worth caching.
	if day != nil {
		s.ogImageCache.Set(ogImage)
	}
	serveOGImage(w, ogImage)
}

func serveOGImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

// ogImageData summarises the 24-hour general forecast for the share image.
func ogImageData(day *models.DayPeriodForecast) (imagegen.OGImageData, forecast.Category) {
	if day == nil || day.General.Text == "" {
		return imagegen.OGImageData{Headline: "Weather Forecast"}, forecast.CategoryGeneric
	}
	g := day.General
	data := imagegen.OGImageData{Headline: g.Text}

	temp := rangeText(g.Temperature, "°C")
	humidity := rangeText(g.Humidity, "%")
	switch {
	case temp != "" && humidity != "":
		data.Detail = fmt.Sprintf("%s  Humidity %s", temp, humidity)
	case temp != "":
		data.Detail = temp
	case humidity != "":
		data.Detail = "Humidity " + humidity
	}
	return data, forecast.Classify(g.Text).Category
}

func rangeText(r models.Range, unit string) string {
	switch {
	case r.Low != nil && r.High != nil:
		return fmt.Sprintf("%g-%g%s", *r.Low, *r.High, unit)
	case r.Low != nil:
		return fmt.Sprintf("%g%s", *r.Low, unit)
	case r.High != nil:
		return fmt.Sprintf("%g%s", *r.High, unit)
	}
	return ""
}
