// Package control is the operator surface of a running bot: health, status,
// arming, brake reset and a live event stream.
package control

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustyeddy/stockbot/engine"
	"github.com/rustyeddy/stockbot/scheduler"
)

// Controller is the part of the engine operators may drive.
type Controller interface {
	Arm()
	Disarm()
	Armed() bool
	ResetDrawdownBrake() error
	Status() engine.Status
}

type Server struct {
	ctl    Controller
	hub    *Hub
	stats  func() []scheduler.Stats
	logger *slog.Logger
	token  string
	mux    *http.ServeMux
}

type Option func(*Server)

// WithSchedulerStats adds task counters to /status.
func WithSchedulerStats(f func() []scheduler.Stats) Option {
	return func(s *Server) { s.stats = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToken requires "Authorization: Bearer <token>" on every route but
// /health. An empty token disables the check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func NewServer(ctl Controller, hub *Hub, opts ...Option) *Server {
	s := &Server{
		ctl:    ctl,
		hub:    hub,
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /status", s.guard(http.HandlerFunc(s.handleStatus)))
	s.mux.Handle("POST /arm", s.guard(http.HandlerFunc(s.handleArm)))
	s.mux.Handle("POST /disarm", s.guard(http.HandlerFunc(s.handleDisarm)))
	s.mux.Handle("POST /brake/reset", s.guard(http.HandlerFunc(s.handleBrakeReset)))
	if hub != nil {
		s.mux.Handle("GET /events", s.guard(hub))
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusResponse struct {
	engine.Status
	Tasks        []scheduler.Stats `json:"tasks,omitempty"`
	EventClients int               `json:"event_clients"`
}

type armResponse struct {
	Armed bool `json:"armed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.ctl.Status()}
	if s.stats != nil {
		resp.Tasks = s.stats()
	}
	if s.hub != nil {
		resp.EventClients = s.hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArm(w http.ResponseWriter, r *http.Request) {
	s.ctl.Arm()
	s.logger.Warn("armed by operator", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, armResponse{Armed: s.ctl.Armed()})
}

func (s *Server) handleDisarm(w http.ResponseWriter, r *http.Request) {
	s.ctl.Disarm()
	s.logger.Info("disarmed by operator", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, armResponse{Armed: s.ctl.Armed()})
}

func (s *Server) handleBrakeReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.ResetDrawdownBrake(); err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status().Risk)
}

// guard rejects cross-origin browser requests and, when a token is set,
// requests without it.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			s.logger.Warn("cross-origin control request refused",
				"origin", r.Header.Get("Origin"),
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
			)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "cross-origin request refused"})
			return
		}
		if s.token != "" && !validToken(r, s.token) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameOrigin reports whether r carries no Origin header or one whose host
// matches the request host. Non-browser clients send no Origin.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func validToken(r *http.Request, token string) bool {
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
