package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"AcevalImport/internal/config"
	"AcevalImport/internal/dashboard"
	"AcevalImport/internal/serviceiface"
)

const shutdownTimeout = 10 * time.Second

// AcevalService serves the stage, snapshot and dashboard endpoints.
type AcevalService struct {
	config map[string]interface{}
	app    config.Config

	mu     sync.Mutex
	server *http.Server
	events *dashboard.SSEServer
	addr   string
}

func NewAcevalService(cfg map[string]interface{}, app config.Config) serviceiface.Service {
	return &AcevalService{config: cfg, app: app}
}

func (s *AcevalService) Name() string {
	return "aceval"
}

// Start binds the listener before returning so a taken port fails startup.
func (s *AcevalService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	port := s.app.Port
	switch v := s.config["port"].(type) {
	case int:
		port = fmt.Sprintf("%d", v)
	case string:
		if v != "" {
			port = v
		}
	}
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", port, err)
	}
	s.addr = ln.Addr().String()
	s.events = dashboard.NewSSEServer(pingInterval(s.config))
	dashboard.SetSSEServer(s.events)
	s.server = &http.Server{
		Handler:           NewRouter(NewHandler(s.app, s.events)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			LogError("aceval server: %v", err)
		}
	}(s.server)
	LogInfo("aceval listening on %s", s.addr)
	return nil
}

func (s *AcevalService) Stop() error {
	s.mu.Lock()
	srv, events := s.server, s.events
	s.server, s.events = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	// open event streams would otherwise hold Shutdown until the timeout
	events.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Status reports the listening address.
func (s *AcevalService) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := 0
	lastSent := map[string]string{}
	if s.events != nil {
		clients = s.events.ClientCount()
		for id, at := range s.events.LastSent() {
			lastSent[id] = at.Format(time.RFC3339)
		}
	}
	return map[string]interface{}{
		"addr":          s.addr,
		"running":       s.server != nil,
		"sse_clients":   clients,
		"sse_last_sent": lastSent,
	}
}

// pingInterval reads sse_ping ("30s") from the service config.
func pingInterval(cfg map[string]interface{}) time.Duration {
	if v, ok := cfg["sse_ping"].(string); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 0
}
