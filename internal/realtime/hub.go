// Package realtime pushes change signals to connected WebSocket and
// server-sent-event subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
	"github.com/grachmannico95/bankline/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultBufferSize        = 16
	defaultHeartbeatInterval = 15 * time.Second

	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

type Option func(*Hub)

// WithHeartbeat sets how often idle SSE streams get a comment line.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Hub) { h.heartbeat = d }
}

// Hub fans change signals out to every subscriber whose category filter
// matches. It implements eventbus.Broadcaster.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	closed      bool

	upgrader  websocket.Upgrader
	heartbeat time.Duration
	logger    *logger.Logger
}

func NewHub(log *logger.Logger, opts ...Option) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Hub{
		subscribers: make(map[*subscriber]struct{}),
		heartbeat:   defaultHeartbeatInterval,
		logger:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type subscriber struct {
	categories map[domain.Category]bool
	transport  string
	send       chan domain.ChangeSignal
	done       chan struct{}
	once       sync.Once
}

func newSubscriber(transport string, categories []domain.Category) *subscriber {
	s := &subscriber{
		transport: transport,
		send:      make(chan domain.ChangeSignal, defaultBufferSize),
		done:      make(chan struct{}),
	}
	if len(categories) > 0 {
		s.categories = make(map[domain.Category]bool, len(categories))
		for _, c := range categories {
			s.categories[c] = true
		}
	}
	return s
}

// filter narrows sig to the subscriber's categories; ok is false when nothing is left.
func (s *subscriber) filter(sig domain.ChangeSignal) (domain.ChangeSignal, bool) {
	if s.categories == nil {
		return sig, true
	}
	out := domain.ChangeSignal{Versions: make(map[domain.Category]int64)}
	for _, c := range sig.Categories {
		if s.categories[c] {
			out.Categories = append(out.Categories, c)
			if v, ok := sig.Versions[c]; ok {
				out.Versions[c] = v
			}
		}
	}
	return out, len(out.Categories) > 0
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

func (h *Hub) register(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subscribers[s] = struct{}{}
	metrics.StubStreamClients.WithLabelValues(s.transport).Inc()
	return true
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
		metrics.StubStreamClients.WithLabelValues(s.transport).Dec()
	}
	h.mu.Unlock()
	s.close()
}

// Broadcast queues sig for every matching subscriber. A subscriber that
// cannot keep up is disconnected; its client reconnects and polls.
func (h *Hub) Broadcast(ctx context.Context, sig domain.ChangeSignal) {
	h.mu.RLock()
	var slow []*subscriber
	delivered := 0
	for s := range h.subscribers {
		out, ok := s.filter(sig)
		if !ok {
			continue
		}
		select {
		case s.send <- out:
			delivered++
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn(ctx, "Dropping slow stream subscriber", "transport", s.transport)
		h.unregister(s)
	}
	h.logger.Debug(ctx, "Change signal broadcast",
		"categories", sig.Categories,
		"subscribers", delivered,
	)
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.unregister(s)
	}
}

// ServeWS upgrades the request and streams signals as JSON text frames until
// the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, categories []domain.Category) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	sub := newSubscriber(TransportWebSocket, categories)
	if !h.register(sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		return conn.Close()
	}
	h.logger.Debug(r.Context(), "Stream subscriber connected", "transport", TransportWebSocket)

	go h.readPump(conn, sub)
	h.writePump(conn, sub)
	return nil
}

// readPump only services control frames; clients never send data.
func (h *Hub) readPump(conn *websocket.Conn, sub *subscriber) {
	defer h.unregister(sub)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug(context.Background(), "Stream subscriber closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case sig := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(sig); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// ServeSSE writes signals as text/event-stream data lines until the request
// context ends or the hub closes.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, categories []domain.Category) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer %T cannot stream", w)
	}

	sub := newSubscriber(TransportSSE, categories)
	if !h.register(sub) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return nil
	}
	defer h.unregister(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// an initial comment lets clients see the stream open before any signal
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return nil
	}
	flusher.Flush()
	h.logger.Debug(r.Context(), "Stream subscriber connected", "transport", TransportSSE)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-sub.done:
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case sig := <-sub.send:
			payload, err := json.Marshal(sig)
			if err != nil {
				h.logger.Error(r.Context(), "Failed to encode change signal", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
