// Package remote exposes a session over HTTP: a JSON control API, a
// websocket state stream and Prometheus metrics.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/patterns"
	"github.com/verte-zerg/punchcall/internal/session"
)

// Version is reported by /api/version.
var Version = "dev"

// Engine is the part of session.Engine the server drives.
type Engine interface {
	Start(cfg model.TrainingConfig, set model.PatternSet) error
	Pause()
	Resume()
	Stop()
	SetPlaybackSpeed(v float64) float64
	Snapshot() session.Snapshot
	Subscribe(buffer int) <-chan session.Event
	Unsubscribe(sub <-chan session.Event)
}

// Library lists and resolves pattern sets.
type Library interface {
	Sets() []model.PatternSet
	Get(id string) (model.PatternSet, error)
}

// Server serves the control API.
type Server struct {
	engine  Engine
	library Library
	stats   *Stats
	logger  *slog.Logger
	save    func(model.TrainingConfig) error

	mu  sync.Mutex
	cfg model.TrainingConfig
}

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Save persists configuration changes made over the API. Optional.
	Save func(model.TrainingConfig) error
}

// New returns a Server driving engine with cfg as the session configuration.
func New(engine Engine, library Library, cfg model.TrainingConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		library: library,
		stats:   NewStats(),
		logger:  logger,
		save:    opts.Save,
		cfg:     cfg,
	}
}

// Stats returns the server collectors.
func (s *Server) Stats() *Stats {
	return s.stats
}

// SetupMux builds the router.
func (s *Server) SetupMux() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", s.stats.Handler())
	r.HandleFunc("/ws", s.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.StatsMiddleware)
	// Subrouters report a method mismatch as 404 unless they carry their own handler.
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.HandleFunc("/version", s.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/state", s.StateHandler).Methods(http.MethodGet)
	api.HandleFunc("/start", s.StartHandler).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.intent(s.engine.Pause)).Methods(http.MethodPost)
	api.HandleFunc("/resume", s.intent(s.engine.Resume)).Methods(http.MethodPost)
	api.HandleFunc("/stop", s.intent(s.engine.Stop)).Methods(http.MethodPost)
	api.HandleFunc("/speed", s.SpeedHandler).Methods(http.MethodPut)
	api.HandleFunc("/sets", s.SetsHandler).Methods(http.MethodGet)
	api.HandleFunc("/selected", s.SelectHandler).Methods(http.MethodPut)
	return r
}

// Handler returns the traced router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.SetupMux(), "punchcall")
}

// Observe feeds engine events into the metrics until ctx is done.
func (s *Server) Observe(ctx context.Context) {
	sub := s.engine.Subscribe(64)
	defer s.engine.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.stats.Observe(ev)
		}
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go s.Observe(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("remote shutdown failed", slog.Any("error", err))
		}
	}()
	s.logger.Info("remote listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Config returns the configuration used by the next start.
func (s *Server) Config() model.TrainingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// VersionHandler reports the build version.
func (s *Server) VersionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// StateHandler returns the engine snapshot.
func (s *Server) StateHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// StartHandler starts a session with the selected set.
func (s *Server) StartHandler(w http.ResponseWriter, _ *http.Request) {
	cfg := s.Config()
	set, err := s.library.Get(cfg.SelectedPatternSetID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.engine.Start(cfg, set); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) intent(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fn()
		writeJSON(w, http.StatusOK, s.engine.Snapshot())
	}
}

type speedRequest struct {
	Speed *float64 `json:"speed"`
}

// SpeedHandler changes the playback speed of the running session.
func (s *Server) SpeedHandler(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Speed == nil {
		writeError(w, http.StatusBadRequest, errors.New("body must be {\"speed\": number}"))
		return
	}
	speed := s.engine.SetPlaybackSpeed(*req.Speed)
	s.updateConfig(func(cfg *model.TrainingConfig) {
		cfg.PlaybackSpeed = speed
	})
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type setSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Patterns  int    `json:"patterns"`
	IsDefault bool   `json:"isDefault"`
	Selected  bool   `json:"selected"`
}

// SetsHandler lists pattern sets.
func (s *Server) SetsHandler(w http.ResponseWriter, _ *http.Request) {
	selected := s.Config().SelectedPatternSetID
	sets := s.library.Sets()
	out := make([]setSummary, 0, len(sets))
	for _, set := range sets {
		out = append(out, setSummary{
			ID:        set.ID,
			Name:      set.Name,
			Patterns:  len(set.Patterns),
			IsDefault: set.IsDefault,
			Selected:  set.ID == selected,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type selectRequest struct {
	ID string `json:"id"`
}

// SelectHandler selects the set used by the next start.
func (s *Server) SelectHandler(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("body must be {\"id\": string}"))
		return
	}
	if _, err := s.library.Get(req.ID); err != nil {
		if errors.Is(err, patterns.ErrSetNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	cfg := s.updateConfig(func(cfg *model.TrainingConfig) {
		cfg.SelectedPatternSetID = req.ID
	})
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) updateConfig(fn func(cfg *model.TrainingConfig)) model.TrainingConfig {
	s.mu.Lock()
	fn(&s.cfg)
	cfg := s.cfg
	s.mu.Unlock()
	if s.save != nil {
		if err := s.save(cfg); err != nil {
			s.logger.Warn("failed to save config", slog.Any("error", err))
		}
	}
	return cfg
}

// RespWriter records the status written by a handler.
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader records status before writing it.
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// StatsMiddleware counts API requests by status and method.
func (s *Server) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.stats.RecordRequest(wrapped.Status, r.Method)
	})
}

var errMethodNotAllowed = errors.New("method not allowed")

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", slog.Any("error", err))
	}
}
