// Package api provides the HTTP and WebSocket surface for observing and
// configuring the input bridge.
package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"scanbridge/internal/config"
	"scanbridge/internal/network"
)

// Status is the live state reported by /api/status.
type Status struct {
	CaptureActive bool  `json:"capture_active"`
	Buttons       uint8 `json:"buttons"`
	RemappedKeys  int   `json:"remapped_keys"`
	Agents        int   `json:"agents"`
}

// Server provides the HTTP API for remote observation and control.
type Server struct {
	configMgr *config.Manager
	status    func() Status
	wsMgr     *WSManager
	log       zerolog.Logger
}

// NewServer creates a new API server. status is polled on each
// /api/status request.
func NewServer(configMgr *config.Manager, status func() Status, log zerolog.Logger) *Server {
	s := &Server{
		configMgr: configMgr,
		status:    status,
		log:       log,
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Start starts the API server on the specified port
func (s *Server) Start(port int) error {
	// Start WebSocket Manager
	go s.wsMgr.start()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	// Use "0.0.0.0:port" and explicitly use tcp4 to avoid IPv6-only binding issues on Windows
	addr := fmt.Sprintf("0.0.0.0:%d", port)

	if ips, err := network.GetLocalIPs(); err == nil {
		for _, ip := range ips {
			s.log.Debug().Str("ip", ip).Msg("local interface")
		}
	}

	s.log.Info().Str("addr", addr).Msg("starting api server")

	// Create a listener explicitly with tcp4
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		s.log.Error().Err(err).Str("addr", addr).Msg("api server failed to listen")
		return err
	}

	server := &http.Server{
		Handler: s.authMiddleware(s.recoverMiddleware(mux)),
	}

	// This is blocking
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.log.Error().Err(err).Msg("api server stopped")
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error().Interface("panic", err).Msg("recovered handler panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("api request")

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		// If a token is configured, verify it. Read from the config
		// manager on every request so token changes via /api/config
		// apply without a restart.
		token := s.configMgr.Get().General.APIToken
		if token != "" {
			authHeader := r.Header.Get("Authorization")
			expectedAuth := "Bearer " + token

			if authHeader != expectedAuth {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// handleConfig handles GET (read) and POST (update) for configuration
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		cfg := s.configMgr.Get()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg)

	case "POST":
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			http.Error(w, "Invalid configuration data", http.StatusBadRequest)
			return
		}

		s.log.Info().Str("remote", r.RemoteAddr).Msg("configuration update received")

		// Update in-memory config and save to disk
		s.configMgr.Set(&newCfg)
		if err := s.configMgr.Save(); err != nil {
			s.log.Error().Err(err).Msg("failed to save received config")
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status())
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// BroadcastKey publishes an emulated key transition to WebSocket subscribers.
func (s *Server) BroadcastKey(scancode uint16, pressed bool, timestamp int64) {
	if s.wsMgr != nil {
		s.wsMgr.BroadcastKey(scancode, pressed, timestamp)
	}
}

// BroadcastMove publishes emulated pointer motion.
func (s *Server) BroadcastMove(dx, dy int) {
	if s.wsMgr != nil {
		s.wsMgr.BroadcastMove(dx, dy)
	}
}

// BroadcastButtons publishes an emulated button mask change.
func (s *Server) BroadcastButtons(mask uint8) {
	if s.wsMgr != nil {
		s.wsMgr.BroadcastButtons(mask)
	}
}

// BroadcastWheel publishes emulated wheel motion in notches.
func (s *Server) BroadcastWheel(notches int) {
	if s.wsMgr != nil {
		s.wsMgr.BroadcastWheel(notches)
	}
}

// BroadcastCapture publishes a pointer capture toggle.
func (s *Server) BroadcastCapture(active bool) {
	if s.wsMgr != nil {
		s.wsMgr.BroadcastCapture(active)
	}
}
