package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/logger"

	"github.com/google/uuid"
)

// Event is pushed to every connected client when a stage snapshot or a
// summary workbook is written.
type Event struct {
	Type     string    `json:"type"`
	Stage    string    `json:"etapa,omitempty"`
	Invoice  string    `json:"factura,omitempty"`
	Supplier string    `json:"proveedor,omitempty"`
	Path     string    `json:"path,omitempty"`
	RunID    string    `json:"run_id,omitempty"`
	Items    int       `json:"items,omitempty"`
	Files    []string  `json:"files,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

const (
	EventStageSaved     = "etapa_guardada"
	EventSummaryRebuilt = "resumen_generado"
	eventConnected      = "connected"
	eventPing           = "ping"

	// backlogSize bounds the events replayed to a client on connect.
	backlogSize = 50
)

type SSEClient struct {
	id      string
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	done    chan struct{}
	// lastSent is when the last event reached the client.
	lastSent time.Time
	// closed is set once the handler returns; the writer is dead after that.
	closed bool
}

// SSEServer fans events out to every connected client and keeps the most
// recent ones for late joiners.
type SSEServer struct {
	mu         sync.RWMutex
	clients    map[string]*SSEClient
	backlog    []Event
	pingTicker *time.Ticker
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewSSEServer(pingInterval time.Duration) *SSEServer {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	s := &SSEServer{
		clients:    make(map[string]*SSEClient),
		stopCh:     make(chan struct{}),
		pingTicker: time.NewTicker(pingInterval),
	}
	go s.pingClients()
	return s
}

// HandleSSE streams events until the client disconnects. The optional
// cliente query parameter replaces an earlier connection with the same id.
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set(constants.ContentTypeText, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := r.URL.Query().Get("cliente")
	if id == "" {
		id = uuid.NewString()
	}
	client := &SSEClient{
		id:       id,
		writer:   w,
		flusher:  flusher,
		done:     make(chan struct{}),
		lastSent: time.Now(),
	}

	s.mu.Lock()
	if existing, exists := s.clients[id]; exists {
		close(existing.done)
	}
	s.clients[id] = client
	backlog := append([]Event(nil), s.backlog...)
	s.mu.Unlock()
	logger.Audit("SSE client %s connected from %s", id, r.RemoteAddr)

	s.sendToClient(client, Event{Type: eventConnected, Time: time.Now()})
	for _, ev := range backlog {
		s.sendToClient(client, ev)
	}

	defer func() {
		client.mu.Lock()
		client.closed = true
		client.mu.Unlock()
		s.drop(id, client, false)
		logger.Audit("SSE client %s disconnected", id)
	}()

	select {
	case <-client.done:
	case <-r.Context().Done():
	case <-s.stopCh:
	}
}

func (s *SSEServer) sendToClient(client *SSEClient, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return fmt.Errorf("client %s closed", client.id)
	}
	if _, err := fmt.Fprintf(client.writer, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	client.flusher.Flush()
	client.lastSent = time.Now()
	return nil
}

// drop removes client if it is still the registered connection for id.
func (s *SSEServer) drop(id string, client *SSEClient, closeDone bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[id] != client {
		return
	}
	delete(s.clients, id)
	if closeDone {
		close(client.done)
	}
}

// Publish records ev in the backlog and sends it to every client. Clients
// that fail to receive it are disconnected.
func (s *SSEServer) Publish(ev Event) {
	if s == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.mu.Lock()
	s.backlog = append(s.backlog, ev)
	if len(s.backlog) > backlogSize {
		s.backlog = s.backlog[len(s.backlog)-backlogSize:]
	}
	clients := s.snapshotClients()
	s.mu.Unlock()

	for id, c := range clients {
		if err := s.sendToClient(c, ev); err != nil {
			logger.Audit("SSE send to %s failed: %v", id, err)
			s.drop(id, c, true)
		}
	}
}

func (s *SSEServer) snapshotClients() map[string]*SSEClient {
	out := make(map[string]*SSEClient, len(s.clients))
	for id, c := range s.clients {
		out[id] = c
	}
	return out
}

func (s *SSEServer) pingClients() {
	defer s.pingTicker.Stop()
	for {
		select {
		case <-s.pingTicker.C:
			s.mu.RLock()
			clients := s.snapshotClients()
			s.mu.RUnlock()
			for id, c := range clients {
				if err := s.sendToClient(c, Event{Type: eventPing, Time: time.Now()}); err != nil {
					s.drop(id, c, true)
				}
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop disconnects every client.
func (s *SSEServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		s.clients = make(map[string]*SSEClient)
		s.mu.Unlock()
	})
}

// Recent returns the backlog, oldest first.
func (s *SSEServer) Recent() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.backlog...)
}

// ClientCount returns the number of connected clients.
func (s *SSEServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// LastSent maps each connected client to the time its last event was
// delivered.
func (s *SSEServer) LastSent() map[string]time.Time {
	s.mu.RLock()
	clients := s.snapshotClients()
	s.mu.RUnlock()
	out := make(map[string]time.Time, len(clients))
	for id, c := range clients {
		c.mu.Lock()
		out[id] = c.lastSent
		c.mu.Unlock()
	}
	return out
}

var globalSSEServer *SSEServer

// SetSSEServer makes s the target of the package-level Publish.
func SetSSEServer(s *SSEServer) {
	globalSSEServer = s
}

// Publish sends ev through the server set with SetSSEServer, if any.
func Publish(ev Event) {
	globalSSEServer.Publish(ev)
}
