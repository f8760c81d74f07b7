package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lox/sgweather/internal/dashboard"
	"github.com/lox/sgweather/internal/metrics"
)

// ClientCookie identifies a browser. The same id keys its dashboard session
// and its persisted preferences.
const ClientCookie = "sgw_client"

type session struct {
	ctrl     *dashboard.Controller
	lastSeen time.Time
}

type sessions struct {
	mu   sync.Mutex
	m    map[string]*session
	idle time.Duration
}

func newSessions(idle time.Duration) *sessions {
	return &sessions{m: make(map[string]*session), idle: idle}
}

// get returns the controller for id, creating it with newCtrl when missing.
// created reports whether the controller is new and still needs Init.
func (ss *sessions) get(id string, now time.Time, newCtrl func() *dashboard.Controller) (ctrl *dashboard.Controller, created bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.m[id]; ok {
		s.lastSeen = now
		return s.ctrl, false
	}
	s := &session{ctrl: newCtrl(), lastSeen: now}
	ss.m[id] = s
	metrics.ActiveSessions.Set(float64(len(ss.m)))
	return s.ctrl, true
}

// sweep drops sessions idle for longer than the idle timeout.
func (ss *sessions) sweep(now time.Time) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for id, s := range ss.m {
		if now.Sub(s.lastSeen) > ss.idle {
			delete(ss.m, id)
			n++
		}
	}
	metrics.ActiveSessions.Set(float64(len(ss.m)))
	return n
}

func (ss *sessions) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.m)
}

// clientID reads the browser id cookie, issuing a new one when it is missing
// or malformed.
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ClientCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// controller returns the dashboard session of the requesting browser. A new
// session is initialised before it is returned; an initial load failure only
// shows up as the page's error banner.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) *dashboard.Controller {
	id := clientID(w, r)
	ctrl, created := s.sessions.get(id, time.Now(), func() *dashboard.Controller {
		var prefs dashboard.Preferences
		if s.store != nil {
			prefs = s.store.Preferences(id)
		}
		return dashboard.NewController(s.source, prefs, s.renderer)
	})
	if created {
		ctrl.Init(r.Context())
	}
	return ctrl
}
