package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"resty.dev/v3"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
	"github.com/grachmannico95/bankline/pkg/retry"
)

const (
	streamPath = "/api/data/stream"
	wsPath     = "/api/data/ws"

	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
)

// PushSource delivers change signals from the backend until ctx ends or Close
// is called. Run reconnects on its own.
type PushSource interface {
	Run(ctx context.Context, token string, signal func(domain.ChangeSignal)) error
	Close() error
}

// StreamURL returns the change stream endpoint for mode, or "" for polling.
func StreamURL(baseURL string, mode Mode, categories []domain.Category) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch mode {
	case ModeSSE:
		u.Path += streamPath
	case ModeWebSocket:
		u.Path += wsPath
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
	default:
		return "", nil
	}

	if len(categories) > 0 {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = string(c)
		}
		u.RawQuery = url.Values{"categories": {strings.Join(names, ",")}}.Encode()
	}
	return u.String(), nil
}

func decodeSignal(data []byte) (domain.ChangeSignal, bool) {
	var sig domain.ChangeSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return sig, false
	}
	return sig, true
}

type reconnector struct {
	options []retry.Option
	pause   time.Duration
}

// run keeps calling session until ctx ends or closed reports true. A session
// that connected and later dropped starts a fresh retry budget.
func (r reconnector) run(ctx context.Context, closed func() bool, session func(opened *bool) error) error {
	for {
		opened := false
		err := retry.Do(ctx, func() error {
			opened = false
			return session(&opened)
		}, r.options...)

		if ctx.Err() != nil || closed() {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.pause):
		}
	}
}

// SSESource reads text/event-stream change signals.
type SSESource struct {
	url    string
	logger *logger.Logger
	retry  reconnector

	mu     sync.Mutex
	es     *resty.EventSource
	closed bool
}

func NewSSESource(streamURL string, log *logger.Logger, opts ...retry.Option) *SSESource {
	if log == nil {
		log = logger.NewNop()
	}
	return &SSESource{
		url:    streamURL,
		logger: log,
		retry:  reconnector{options: opts, pause: time.Second},
	}
}

func (s *SSESource) Run(ctx context.Context, token string, signal func(domain.ChangeSignal)) error {
	return s.retry.run(ctx, s.isClosed, func(opened *bool) error {
		es := resty.NewEventSource().
			SetURL(s.url).
			SetRetryCount(0).
			SetLogger(s.logger.Resty()).
			OnOpen(func(string) {
				*opened = true
				s.logger.Debug(ctx, "Change stream connected", "transport", "sse")
			}).
			OnError(func(err error) {
				s.logger.Debug(ctx, "Change stream error", "transport", "sse", "error", err)
			}).
			OnMessage(func(e any) {
				ev, ok := e.(*resty.Event)
				if !ok {
					return
				}
				if sig, ok := decodeSignal([]byte(ev.Data)); ok {
					signal(sig)
				}
			}, nil)
		if token != "" {
			es.SetHeader("Authorization", "Bearer "+token)
		}

		if !s.track(es) {
			return nil
		}
		err := es.Get()

		if ctx.Err() != nil || s.isClosed() {
			return retry.Permanent(ctx.Err())
		}
		if *opened {
			return nil
		}
		if err == nil {
			err = errors.New("change stream ended before opening")
		}
		return err
	})
}

func (s *SSESource) track(es *resty.EventSource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.es = es
	return true
}

func (s *SSESource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the stream. The reader exits at the next event or heartbeat.
func (s *SSESource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.es != nil {
		s.es.Close()
	}
	return nil
}

// WebSocketSource reads change signals from a WebSocket.
type WebSocketSource struct {
	url    string
	dialer *websocket.Dialer
	logger *logger.Logger
	retry  reconnector

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWebSocketSource(wsURL string, log *logger.Logger, opts ...retry.Option) *WebSocketSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &WebSocketSource{
		url:    wsURL,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: log,
		retry:  reconnector{options: opts, pause: time.Second},
	}
}

func (s *WebSocketSource) Run(ctx context.Context, token string, signal func(domain.ChangeSignal)) error {
	return s.retry.run(ctx, s.isClosed, func(opened *bool) error {
		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}

		conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return retry.Permanent(fmt.Errorf("change stream rejected: %s", resp.Status))
			}
			return err
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		*opened = true
		s.logger.Debug(ctx, "Change stream connected", "transport", "websocket")

		defer s.untrack(conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil || s.isClosed() {
					return retry.Permanent(ctx.Err())
				}
				s.logger.Debug(ctx, "Change stream dropped", "transport", "websocket", "error", err)
				return nil
			}
			if sig, ok := decodeSignal(data); ok {
				signal(sig)
			}
		}
	})
}

func (s *WebSocketSource) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *WebSocketSource) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
	_ = conn.Close()
}

func (s *WebSocketSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return s.conn.Close()
}
