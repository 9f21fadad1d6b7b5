// Package server exposes snapshots and the robot relay over HTTP and
// WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dicklesworthstone/pi_status_agent/internal/history"
	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/relay"
)

// Snapshotter produces the current snapshot. *sampler.Assembler implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// Dispatcher starts robot commands. *relay.Relay implements it.
type Dispatcher interface {
	Dispatch(command string, speed int) (relay.Task, error)
}

// Options wires a Server. Relay may be nil.
type Options struct {
	Snapshots      Snapshotter
	BatteryHistory *history.Buffer[model.Battery]
	Relay          Dispatcher
	// Interval is the WebSocket push period.
	Interval time.Duration
	Logger   *slog.Logger
}

type Server struct {
	opts    Options
	logger  *slog.Logger
	started time.Time
	clients atomic.Int64
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

func New(opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{opts: opts, logger: logger, started: time.Now()}
}

// Handler returns the routes wrapped in permissive CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/system-status", s.systemStatus)
	mux.HandleFunc("GET /api/battery-history", s.batteryHistory)
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("POST /api/crawler", s.crawler)
	mux.HandleFunc("GET /ws/status", s.statusWS)
	return cors(mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) systemStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.opts.Snapshots.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("system status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to get system status"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) batteryHistory(w http.ResponseWriter, _ *http.Request) {
	samples := []model.Battery{}
	if s.opts.BatteryHistory != nil {
		samples = s.opts.BatteryHistory.Snapshot()
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"clients": s.clients.Load(),
		"relay":   s.opts.Relay != nil,
	})
}

type crawlerRequest struct {
	Command string `json:"command"`
	Speed   *int   `json:"speed"`
}

type crawlerResponse struct {
	Success bool   `json:"success"`
	Command string `json:"command"`
	Speed   int    `json:"speed"`
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) crawler(w http.ResponseWriter, r *http.Request) {
	if s.opts.Relay == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Crawler control is not configured"})
		return
	}
	var req crawlerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	speed := relay.DefaultSpeed
	if req.Speed != nil {
		speed = *req.Speed
	}
	task, err := s.opts.Relay.Dispatch(req.Command, speed)
	switch {
	case errors.Is(err, relay.ErrUnknownCommand), errors.Is(err, relay.ErrSpeedOutOfRange):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	case errors.Is(err, relay.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Crawler control is not configured"})
		return
	case err != nil:
		s.logger.Error("crawler dispatch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to control crawler"})
		return
	}
	writeJSON(w, http.StatusAccepted, crawlerResponse{
		Success: true,
		Command: task.Command,
		Speed:   task.Speed,
		TaskID:  task.ID,
		Message: fmt.Sprintf("PiCrawler %s dispatched at %d%% speed", task.Command, task.Speed),
	})
}

// statusWS pushes a snapshot on connect and then every Interval. Client
// messages are read only to notice the close.
func (s *Server) statusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.clients.Add(1)
	defer s.clients.Add(-1)
	s.logger.Info("status client connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.pushStatus(ctx, conn)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("status client unexpected close", "remote", r.RemoteAddr, "error", err)
			}
			s.logger.Info("status client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

// pushStatus is the only writer on conn.
func (s *Server) pushStatus(ctx context.Context, conn *websocket.Conn) {
	push := time.NewTicker(s.opts.Interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	send := func() bool {
		snap, err := s.opts.Snapshots.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.logger.Warn("status push skipped", "error", err)
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(snap) == nil
	}
	if !send() {
		return
	}
	for {
		select {
		case <-push.C:
			if !send() {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
