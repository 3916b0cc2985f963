package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query url.Values
		want  string
	}{
		{"joins slashes", "http://api.test/", "/api/account/me", nil, "http://api.test/api/account/me"},
		{"adds missing slash", "http://api.test", "api/loan", nil, "http://api.test/api/loan"},
		{"relative when base empty", "", "/api/loan", nil, "/api/loan"},
		{"drops empty values", "http://api.test", "/api/transaction/history", url.Values{"page": {"2"}, "type": {""}}, "http://api.test/api/transaction/history?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.base, tt.path, tt.query))
		})
	}
}

func TestNew_RequiresAbsoluteBase(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "/relative"}, nil)
	assert.Error(t, err)
}

func TestDo_AttachesAuthAndJSONBody(t *testing.T) {
	var gotAuth, gotType string
	var gotBody map[string]any

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/support/ticket",
		Token:  "tok-123",
		Body:   map[string]string{"subject": "card stuck"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Contains(t, gotType, "application/json")
	assert.Equal(t, "card stuck", gotBody["subject"])
}

func TestDo_OmitsAuthWithoutToken(t *testing.T) {
	var hasAuth bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health", NoCache: true})
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestDo_CachesGet(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"ana@bank.test"}`))
	})
	ctx := context.Background()
	req := Request{Method: http.MethodGet, Path: "/api/account/me", Token: "t"}

	first, err := c.Do(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Do(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDo_NoCacheAlwaysHitsNetwork(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	req := Request{Method: http.MethodGet, Path: "/api/transaction/history", NoCache: true}

	for i := 0; i < 3; i++ {
		resp, err := c.Do(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.FromCache)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, c.Cache().Len())
}

func TestDo_MutationsAreNotCached(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/loan/apply", Body: map[string]int{"principal": 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Cache().Len())
}

func TestDo_InvalidateForcesRefetch(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()
	req := Request{Method: http.MethodGet, Path: "/api/account/me"}

	_, err := c.Do(ctx, req)
	require.NoError(t, err)

	c.Invalidate(ctx, cache.DomainAccount)

	resp, err := c.Do(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDo_StructuredHTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Forbidden","errorCode":"TOKEN_EXPIRED"}`))
	})

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/admin/users", Token: "old"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 403, httpErr.Status)
	assert.Equal(t, "Forbidden", httpErr.Message)
	assert.Equal(t, "TOKEN_EXPIRED", httpErr.ErrorCode)
	assert.Equal(t, KindHTTP, KindOf(err))
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, c.Cache().Len())
}

func TestDo_PlainTextError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	})

	_, err := c.Do(context.Background(), Request{Path: "/api/loan"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 502, httpErr.Status)
	assert.Equal(t, "upstream down", httpErr.Message)
	assert.Empty(t, httpErr.ErrorCode)
}

func TestDo_EmptyErrorBodyFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Do(context.Background(), Request{Path: "/api/card/9"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "Not Found", httpErr.Message)
}

func TestDo_NetworkFailure(t *testing.T) {
	c, err := New(Options{
		BaseURL: "http://bank.invalid",
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}),
	}, logger.NewNop())
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Path: "/api/account/me", Token: "t"})

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, 0, StatusOf(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, 0, c.Loading().Count())
}

func TestDo_MalformedJSONIsParseError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[`))
	})

	_, err := c.Do(context.Background(), Request{Path: "/api/loan"})

	assert.Equal(t, KindParse, KindOf(err))
	assert.Equal(t, 200, StatusOf(err))
	assert.Equal(t, 0, c.Cache().Len())
}

func TestDoJSON_DecodesInto(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"ana@bank.test","role":"ADMIN"}`))
	})

	var out struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	_, err := c.DoJSON(context.Background(), Request{Path: "/api/account/me"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "ana@bank.test", out.Email)
	assert.Equal(t, "ADMIN", out.Role)
}

func TestDoJSON_TypeMismatchIsParseError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["not","an","object"]`))
	})

	var out struct{ Email string }
	_, err := c.DoJSON(context.Background(), Request{Path: "/api/account/me"}, &out)

	assert.Equal(t, KindParse, KindOf(err))
}

func TestDo_SameIntentSendsSameKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(HeaderIdempotencyKey))
		mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	intent := NewIntent()
	req := Request{
		Method: http.MethodPost,
		Path:   "/api/deposit/action",
		Body:   map[string]any{"action": "approve", "depositRequestId": 42},
		Intent: intent,
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Do(context.Background(), req)
		}()
	}
	wg.Wait()

	require.Len(t, keys, 2)
	assert.Equal(t, intent.Key(), keys[0])
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, 2, intent.Attempts())
	assert.True(t, intent.Done())
}

func TestDo_IdempotentWithoutIntentGeneratesKey(t *testing.T) {
	var keys []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get(HeaderIdempotencyKey))
		w.WriteHeader(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/transaction/transfer", Idempotent: true})
		require.NoError(t, err)
		assert.Equal(t, keys[i], resp.IdempotencyKey)
	}

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.NotEqual(t, keys[0], keys[1])
}

func TestIntent_StaysOpenAfterNetworkFailure(t *testing.T) {
	c, err := New(Options{
		BaseURL: "http://bank.invalid",
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("offline")
		}),
	}, logger.NewNop())
	require.NoError(t, err)

	intent := NewIntent()
	_, err = c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/transaction/transfer", Intent: intent})

	assert.True(t, IsNetwork(err))
	assert.False(t, intent.Done())
	assert.Equal(t, 1, intent.Attempts())
}

func TestDo_LoadingCounterTransitions(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	})

	var mu sync.Mutex
	var seen []int
	c.Loading().Subscribe(func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		_, _ = c.Do(context.Background(), Request{Path: "/api/loan", NoCache: true})
		close(done)
	}()

	require.Eventually(t, c.Loading().Busy, timeoutShort, tick)
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, seen)
	assert.False(t, c.Loading().Busy())
}

func TestDo_UntrackedSkipsLoadingCounter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	calls := 0
	c.Loading().Subscribe(func(int) { calls++ })

	_, err := c.Do(context.Background(), Request{Path: "/api/data/versions", NoCache: true, Untracked: true})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestReset(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Do(context.Background(), Request{Path: "/api/account/me"})
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache().Len())

	c.Reset()
	assert.Equal(t, 0, c.Cache().Len())
}
