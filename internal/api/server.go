package api

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/sgweather/internal/dashboard"
	"github.com/lox/sgweather/internal/geocode"
	"github.com/lox/sgweather/internal/imagegen"
	"github.com/lox/sgweather/internal/models"
	"github.com/lox/sgweather/internal/render"
	"github.com/lox/sgweather/internal/store"
)

// Options configure the optional parts of the server.
type Options struct {
	// ImageDir holds generated banner images.
	ImageDir string
	// OpenAIKey enables banner generation when set.
	OpenAIKey string
	// SessionIdle is how long an untouched dashboard session is kept.
	SessionIdle time.Duration
	// Geocoder enables address lookups on /api/nearest.
	Geocoder Geocoder
	// Air enables the air-quality endpoints and readings.
	Air AirSource
}

// Geocoder resolves an address or postal code to a position.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geocode.Result, error)
}

// AirSource fetches one air-quality feed.
type AirSource interface {
	FetchAirQuality(ctx context.Context, feed models.Horizon) (models.AirQuality, error)
}

type Server struct {
	store    *store.Store
	source   dashboard.Source
	renderer *render.Renderer
	port     string
	loc      *time.Location
	tmpl     *template.Template
	sessions *sessions
	geocoder Geocoder
	air      AirSource

	imageCache   *imagegen.Cache
	imageGen     *imagegen.Generator
	genMu        sync.Mutex // Prevents concurrent generation of same image
	ogImageCache *imagegen.OGImageCache
}

func NewServer(st *store.Store, source dashboard.Source, port string, loc *time.Location, opts Options) *Server {
	if loc == nil {
		loc = time.UTC
	}
	if opts.ImageDir == "" {
		opts.ImageDir = "data/images"
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = 30 * time.Minute
	}

	// Image generation is optional
	var imageGen *imagegen.Generator
	if gen, err := imagegen.NewGenerator(opts.OpenAIKey); err != nil {
		log.Printf("api: banner generation disabled: %v", err)
	} else {
		imageGen = gen
	}

	return &Server{
		store:        st,
		source:       source,
		renderer:     render.New(loc),
		port:         port,
		loc:          loc,
		tmpl:         newTemplates(),
		sessions:     newSessions(opts.SessionIdle),
		geocoder:     opts.Geocoder,
		air:          opts.Air,
		imageCache:   imagegen.NewCache(opts.ImageDir),
		imageGen:     imageGen,
		ogImageCache: imagegen.NewOGImageCache(10 * time.Minute),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /actions/horizon", s.handleHorizon)
	mux.HandleFunc("POST /actions/layout", s.handleLayout)
	mux.HandleFunc("POST /actions/map", s.handleMap)
	mux.HandleFunc("POST /actions/theme", s.handleTheme)
	mux.HandleFunc("POST /actions/locate", s.handleLocate)
	mux.HandleFunc("POST /actions/area", s.handleArea)
	mux.HandleFunc("GET /api/map", s.handleAPIMap)
	mux.HandleFunc("GET /api/forecast/{horizon}", s.handleAPIForecast)
	mux.HandleFunc("GET /api/nearest", s.handleAPINearest)
	mux.HandleFunc("GET /api/air/{feed}", s.handleAPIAir)
	mux.HandleFunc("GET /banner.png", s.handleBanner)
	mux.HandleFunc("GET /og-image.png", s.handleOGImage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.sessions.sweep(now); n > 0 {
					log.Printf("api: expired %d idle sessions", n)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
