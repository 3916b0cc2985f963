package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

const waitFor = 2 * time.Second

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		cats, _ := domain.ParseCategories(r.URL.Query().Get("categories"))
		_ = hub.ServeWS(w, r, cats)
	})
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		cats, _ := domain.ParseCategories(r.URL.Query().Get("categories"))
		_ = hub.ServeSSE(w, r, cats)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.CloseClientConnections()
		srv.Close()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_WebSocketReceivesSignal(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := newHubServer(t, hub)
	conn := dial(t, srv, "")

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, waitFor, 5*time.Millisecond)

	hub.Broadcast(context.Background(), domain.ChangeSignal{
		Categories: []domain.Category{domain.CategoryDeposits},
		Versions:   map[domain.Category]int64{domain.CategoryDeposits: 3},
	})

	_ = conn.SetReadDeadline(time.Now().Add(waitFor))
	var sig domain.ChangeSignal
	require.NoError(t, conn.ReadJSON(&sig))
	assert.Equal(t, []domain.Category{domain.CategoryDeposits}, sig.Categories)
	assert.Equal(t, int64(3), sig.Versions[domain.CategoryDeposits])
}

func TestHub_FiltersByCategory(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := newHubServer(t, hub)
	conn := dial(t, srv, "?categories=loans")

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, waitFor, 5*time.Millisecond)

	ctx := context.Background()
	hub.Broadcast(ctx, domain.ChangeSignal{Categories: []domain.Category{domain.CategoryTransactions}})
	hub.Broadcast(ctx, domain.ChangeSignal{
		Categories: []domain.Category{domain.CategoryTransactions, domain.CategoryLoans},
		Versions:   map[domain.Category]int64{domain.CategoryTransactions: 4, domain.CategoryLoans: 2},
	})

	_ = conn.SetReadDeadline(time.Now().Add(waitFor))
	var sig domain.ChangeSignal
	require.NoError(t, conn.ReadJSON(&sig))
	assert.Equal(t, []domain.Category{domain.CategoryLoans}, sig.Categories)
	assert.Equal(t, map[domain.Category]int64{domain.CategoryLoans: 2}, sig.Versions)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := newHubServer(t, hub)
	conn := dial(t, srv, "")

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, waitFor, 5*time.Millisecond)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, waitFor, 5*time.Millisecond)
}

func TestHub_SSEStream(t *testing.T) {
	hub := NewHub(logger.NewNop(), WithHeartbeat(20*time.Millisecond))
	srv := newHubServer(t, hub)

	resp, err := http.Get(srv.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, waitFor, 5*time.Millisecond)
	hub.Broadcast(context.Background(), domain.ChangeSignal{Categories: []domain.Category{domain.CategoryAccounts}})

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var (
		sawPing bool
		sig     domain.ChangeSignal
		gotData bool
	)
	deadline := time.After(waitFor)
	for !(sawPing && gotData) {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended early")
			switch {
			case line == ": ping":
				sawPing = true
			case strings.HasPrefix(line, "data: "):
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &sig))
				gotData = true
			}
		case <-deadline:
			t.Fatalf("timed out: ping=%v data=%v", sawPing, gotData)
		}
	}
	assert.Equal(t, []domain.Category{domain.CategoryAccounts}, sig.Categories)
}

func TestHub_CloseRefusesNewSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := newHubServer(t, hub)
	hub.Close()

	resp, err := http.Get(srv.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, hub.Clients())
}

func TestSubscriberFilter(t *testing.T) {
	all := newSubscriber(TransportSSE, nil)
	sig := domain.ChangeSignal{Categories: []domain.Category{domain.CategoryLoans}}

	out, ok := all.filter(sig)
	assert.True(t, ok)
	assert.Equal(t, sig, out)

	deposits := newSubscriber(TransportSSE, []domain.Category{domain.CategoryDeposits})
	_, ok = deposits.filter(sig)
	assert.False(t, ok)
}
