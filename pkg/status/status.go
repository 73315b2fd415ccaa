// Package status serves the tracker state over HTTP.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"
)

// Provider returns a JSON serializable view of a component.
type Provider func() interface{}

// Server exposes /health, /status and /status/{component}.
type Server struct {
	Addr string

	lock      sync.RWMutex
	providers map[string]Provider
	started   time.Time
}

// New creates a Server listening on addr.
func New(addr string) *Server {
	return &Server{Addr: addr, providers: make(map[string]Provider), started: time.Now()}
}

// Register adds a component.
func (s *Server) Register(name string, p Provider) *Server {
	s.lock.Lock()
	s.providers[name] = p
	s.lock.Unlock()
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Get("/health", s.health)
	r.Route("/status", func(r chi.Router) {
		r.Get("/", s.all)
		r.Get("/{component}", s.component)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// Components lists the registered names.
func (s *Server) Components() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) all(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]interface{})
	s.lock.RLock()
	for name, p := range s.providers {
		out[name] = p()
	}
	s.lock.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) component(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "component")
	s.lock.RLock()
	p, ok := s.providers[name]
	s.lock.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "unknown component " + name,
			"code":  http.StatusNotFound,
		})
		return
	}
	writeJSON(w, http.StatusOK, p())
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "status"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("status listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Warningf("status shutdown: %v", err)
	}
	return ctx.Err()
}
