package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type provider struct {
	mu      sync.Mutex
	status  int
	body    string
	queries []string
}

func (p *provider) handler(t *testing.T, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("request without User-Agent")
		}
		p.mu.Lock()
		p.queries = append(p.queries, r.URL.Query().Get(param))
		status, body := p.status, p.body
		p.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func (p *provider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

// fakeProviders serves OneMap under /onemap and Nominatim under /nominatim.
func fakeProviders(t *testing.T, onemap, nominatim *provider) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/onemap", onemap.handler(t, "searchVal"))
	mux.Handle("/nominatim", nominatim.handler(t, "q"))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), Endpoints{OneMap: srv.URL + "/onemap", Nominatim: srv.URL + "/nominatim"})
}

const oneMapHit = `{"found":1,"totalNumPages":1,"pageNum":1,"results":[{"SEARCHVAL":"ION ORCHARD","ADDRESS":"2 ORCHARD TURN ION ORCHARD SINGAPORE 238801","POSTAL":"238801","LATITUDE":"1.30398","LONGITUDE":"103.83187"}]}`

const nominatimHit = `[{"lat":"1.2834","lon":"103.8607","display_name":"Marina Bay Sands, Singapore"}]`

func TestGeocodeOneMap(t *testing.T) {
	onemap := &provider{body: oneMapHit}
	nominatim := &provider{body: nominatimHit}
	c := fakeProviders(t, onemap, nominatim)

	res, err := c.Geocode(context.Background(), " 238801 ")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if res.Source != "onemap" || res.Lat != 1.30398 || res.Lon != 103.83187 {
		t.Errorf("got %+v", res)
	}
	if res.Query != "238801" || res.Address != "2 ORCHARD TURN ION ORCHARD SINGAPORE 238801" {
		t.Errorf("got %+v", res)
	}
	if onemap.queries[0] != "238801" {
		t.Errorf("onemap searched %q", onemap.queries[0])
	}
	if nominatim.calls() != 0 {
		t.Error("nominatim asked after a OneMap hit")
	}
}

func TestGeocodeFallsBackToNominatim(t *testing.T) {
	tests := []struct {
		name   string
		onemap *provider
	}{
		{"no results", &provider{body: `{"found":0,"totalNumPages":0,"pageNum":1,"results":[]}`}},
		{"server error", &provider{status: http.StatusInternalServerError, body: `{"error":"down"}`}},
		{"bad coordinates", &provider{body: `{"found":1,"results":[{"SEARCHVAL":"X","LATITUDE":"NIL","LONGITUDE":"NIL"}]}`}},
		{"not json", &provider{body: `<html>`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nominatim := &provider{body: nominatimHit}
			c := fakeProviders(t, tt.onemap, nominatim)

			res, err := c.Geocode(context.Background(), "Marina Bay Sands")
			if err != nil {
				t.Fatalf("Geocode: %v", err)
			}
			if res.Source != "nominatim" || res.Lat != 1.2834 || res.Address != "Marina Bay Sands, Singapore" {
				t.Errorf("got %+v", res)
			}
			if nominatim.calls() != 1 {
				t.Errorf("nominatim called %d times", nominatim.calls())
			}
		})
	}
}

func TestGeocodeNotFound(t *testing.T) {
	c := fakeProviders(t, &provider{body: `{"found":0,"results":[]}`}, &provider{body: `[]`})
	if _, err := c.Geocode(context.Background(), "nowhere street"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGeocodeBothFail(t *testing.T) {
	c := fakeProviders(t,
		&provider{status: http.StatusBadGateway},
		&provider{status: http.StatusTooManyRequests},
	)
	_, err := c.Geocode(context.Background(), "Bedok")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want provider errors", err)
	}
	for _, want := range []string{"onemap: status 502", "nominatim: status 429"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestGeocodeEmptyQuery(t *testing.T) {
	onemap := &provider{body: oneMapHit}
	c := fakeProviders(t, onemap, &provider{})
	if _, err := c.Geocode(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
	if onemap.calls() != 0 {
		t.Error("empty query reached the provider")
	}
}

func TestGeocodeSkipsUnsetProvider(t *testing.T) {
	nominatim := &provider{body: nominatimHit}
	srv := httptest.NewServer(nominatim.handler(t, "q"))
	t.Cleanup(srv.Close)

	c := NewClient(srv.Client(), Endpoints{Nominatim: srv.URL})
	res, err := c.Geocode(context.Background(), "Marina Bay")
	if err != nil || res.Source != "nominatim" {
		t.Errorf("got %+v, %v", res, err)
	}
}
